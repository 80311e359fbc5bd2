package shared

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

// ErrInvalidImage is returned when an uploaded image is not valid base64.
var ErrInvalidImage = errors.New("image must be base64 or a base64 data URL")

// Image is an uploaded image. In JSON it is either bare standard base64 or
// a data URL such as "data:image/jpeg;base64,...".
type Image []byte

// UnmarshalJSON implements json.Unmarshaler.
func (img *Image) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidImage
	}
	if strings.HasPrefix(s, "data:") {
		header, payload, ok := strings.Cut(s, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return ErrInvalidImage
		}
		s = payload
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return ErrInvalidImage
	}
	*img = data
	return nil
}

// ImageBytes converts uploaded images to raw byte slices.
func ImageBytes(images []Image) [][]byte {
	if len(images) == 0 {
		return nil
	}
	out := make([][]byte, len(images))
	for i, img := range images {
		out[i] = img
	}
	return out
}
