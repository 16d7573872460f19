package encoder

const (
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// Encoder turns fixed-size blocks of mono samples into a compressed stream.
type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
}

var _ Encoder = (*FlacEncoder)(nil)
