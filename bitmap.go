package vsfsck

// decodeBitmap unpacks count entries from a raw bitmap block. Entry i is
// bit i%8 of byte i/8 (least significant bit first). Bits past count are
// ignored even when set.
func decodeBitmap(raw []byte, count int) []bool {
	v := make([]bool, count)
	for i := range v {
		v[i] = raw[i/8]>>(i%8)&1 == 1
	}
	return v
}
