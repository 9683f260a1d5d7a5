package shmimg

import "fmt"

// Mode selects how a codec treats a 3-D array, which is otherwise ambiguous
// between one multi-channel image and a group of single-channel images.
type Mode int

const (
	// Single treats arrays as one image.
	Single Mode = iota
	// Batch treats arrays as a group of images.
	Batch
)

func (m Mode) String() string {
	switch m {
	case Single:
		return "single"
	case Batch:
		return "batch"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Codec converts between a caller-visible array of T and the raw grouped
// bytes stored in a slot.
//
// Decode receives the byte view of one slot, shaped (G, H, W, C*cbw), and
// may return a view that aliases it. Encode returns a 4-D byte array,
// (G, H, W, C*cbw) or (1, H, W, C*cbw), ready to be copied into a slot.
type Codec[T Element] interface {
	// Name identifies the codec in logs and snapshots.
	Name() string
	// ByteWidth is the number of bytes per stored value.
	ByteWidth() int
	Decode(raw *Array[byte]) (*Array[T], error)
	Encode(img *Array[T]) (*Array[byte], error)
}

type identityCodec struct {
	mode Mode
}

// Identity returns the pass-through byte codec. Decode returns the slot view
// unchanged. Encode only adds the group and channel axes a slot needs:
// (H, W) becomes (1, H, W, 1); a 3-D array becomes (1, H, W, C) in Single
// mode and (G, H, W, 1) in Batch mode; 4-D arrays pass through.
func Identity(mode Mode) Codec[byte] {
	return identityCodec{mode: mode}
}

func (c identityCodec) Name() string { return "identity/" + c.mode.String() }

func (identityCodec) ByteWidth() int { return 1 }

func (identityCodec) Decode(raw *Array[byte]) (*Array[byte], error) {
	return raw, nil
}

func (c identityCodec) Encode(img *Array[byte]) (*Array[byte], error) {
	switch img.NDim() {
	case 2:
		out, err := img.ExpandDims(2)
		if err != nil {
			return nil, err
		}
		return out.ExpandDims(0)
	case 3:
		if c.mode == Batch {
			return img.ExpandDims(3)
		}
		return img.ExpandDims(0)
	case 4:
		return img, nil
	default:
		return nil, unsupported(c.Name()+" encode", img.shape, "rank %d, want 2, 3 or 4", img.NDim())
	}
}
