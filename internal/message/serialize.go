package message

import "github.com/robert-malhotra/h5compound/internal/binary"

// Serializable is implemented by messages this package can write.
type Serializable interface {
	Message
	Serialize(w *binary.Writer) error
	SerializedSize(w *binary.Writer) int
}

// Encode serializes msg into a fresh byte slice using cfg's field widths.
func Encode(msg Serializable, cfg binary.Config) ([]byte, error) {
	buf := binary.NewBuffer(64)
	if err := msg.Serialize(binary.NewWriter(buf, cfg)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
