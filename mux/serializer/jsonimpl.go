package serializer

import (
	"encoding/json"

	"github.com/ValentinKolb/dMux/mux/common"
)

// NewJSONSerializer creates a new serializer using the JSON format.
// JSON output is valid UTF-8 and contains no raw newlines, so it needs
// no armoring for the frame payload.
func NewJSONSerializer() ISerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements ISerializer using encoding/json
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ISerializer)
// --------------------------------------------------------------------------

func (s jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (s jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	return json.Unmarshal(b, msg)
}
