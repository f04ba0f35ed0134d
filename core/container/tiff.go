package container

import "bytes"

// readTIFF hands the whole file over as the EXIF block: a TIFF file is a TIFF
// stream, and its IFD0 carries both layout and descriptive tags. The codec
// removes the layout tags after decoding.
func readTIFF(data []byte) (*Info, error) {
	if len(data) < 8 ||
		!(bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*"))) {
		return nil, invalid("tiff: bad header")
	}
	info := newInfo()
	info.EXIF = data
	return info, nil
}
