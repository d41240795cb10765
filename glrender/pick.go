package glrender

// MaxPickRecords is the number of record indices representable in the RGB
// channels of a pick pixel. Index 0xFFFFFF is the cleared background.
const MaxPickRecords = 0xFFFFFF

// MaxPickShapes is the number of shapes distinguishable in one picking pass,
// one per alpha channel value.
const MaxPickShapes = 256

// Pick is a picking query hit.
type Pick struct {
	// Shape is the identity given to [Platform.AssignPickIndex], i.e: the *Shape drawn.
	Shape any
	// Index is the record index within the data uploaded to Shape.
	Index uint32
}

// EncodePick returns the normalized RGBA color encoding a record index
// (little endian in RGB) and shape slot (alpha).
func EncodePick(index uint32, slot uint8) [4]float32 {
	return [4]float32{
		float32(index&0xff) / 255,
		float32(index>>8&0xff) / 255,
		float32(index>>16&0xff) / 255,
		float32(slot) / 255,
	}
}

// PickBytes converts a normalized color to the unorm8 pixel a framebuffer stores.
func PickBytes(c [4]float32) (px [4]byte) {
	for i, v := range c {
		v = v*255 + 0.5
		switch {
		case v <= 0:
			px[i] = 0
		case v >= 255:
			px[i] = 255
		default:
			px[i] = byte(v)
		}
	}
	return px
}

// DecodePick decodes a pick pixel into record index and shape slot.
// ok is false for the cleared background.
func DecodePick(px [4]byte) (index uint32, slot uint8, ok bool) {
	index = uint32(px[0]) | uint32(px[1])<<8 | uint32(px[2])<<16
	return index, px[3], index < MaxPickRecords
}
