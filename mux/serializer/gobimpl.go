package serializer

import (
	"bytes"
	"encoding/gob"

	"github.com/ValentinKolb/dMux/mux/common"
)

// NewGOBSerializer creates a new serializer using Go's gob encoding.
// Gob output is arbitrary binary, so it is base64 armored for the frame
// payload.
func NewGOBSerializer() ISerializer {
	return &gobSerializerImpl{}
}

// gobSerializerImpl implements ISerializer using encoding/gob
type gobSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ISerializer)
// --------------------------------------------------------------------------

func (s gobSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(msg); err != nil {
		return nil, err
	}
	return armor(buf.Bytes()), nil
}

func (s gobSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	raw, err := dearmor(b)
	if err != nil {
		return err
	}
	return gob.NewDecoder(bytes.NewReader(raw)).Decode(msg)
}
