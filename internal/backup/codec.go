package backup

import "strings"

const encryptedSuffix = ".enc"

// ArtifactCodec turns a workbook file into the bytes stored remotely and
// back. The applied steps are encoded in the object name suffixes so a
// download can be decoded without any side metadata.
type ArtifactCodec struct {
	compression CompressionConfig
	compressor  *CompressionManager
	encryption  *EncryptionManager
}

// NewArtifactCodec creates a codec. A zero config stores artifacts as is.
func NewArtifactCodec(compression CompressionConfig, encryption *EncryptionConfig) *ArtifactCodec {
	return &ArtifactCodec{
		compression: compression,
		compressor:  NewCompressionManager(),
		encryption:  NewEncryptionManager(encryption),
	}
}

// Encode compresses (when enabled and above the threshold) then encrypts
// (when enabled). It returns the encoded bytes, the suffix to append to the
// object name and the compression stats, nil when nothing was compressed.
func (c *ArtifactCodec) Encode(data []byte) ([]byte, string, *CompressionStats, error) {
	var suffix strings.Builder
	var stats *CompressionStats
	out := data

	if c.compression.Enabled && c.compression.Algorithm != CompressionTypeNone &&
		c.compressor.ShouldCompress(int64(len(data)), c.compression.Threshold) {
		compressed, cs, err := c.compressor.Compress(out, c.compression.Algorithm, c.compression.Level)
		if err != nil {
			return nil, "", nil, err
		}
		out = compressed
		stats = cs
		suffix.WriteString(c.compression.Algorithm.Extension())
	}

	if c.encryption.IsEnabled() {
		sealed, err := c.encryption.Encrypt(out)
		if err != nil {
			return nil, "", nil, err
		}
		out = sealed
		suffix.WriteString(encryptedSuffix)
	}

	return out, suffix.String(), stats, nil
}

// Decode reverses Encode using the suffixes of name
func (c *ArtifactCodec) Decode(name string, data []byte) ([]byte, error) {
	out := data
	rest := name

	if strings.HasSuffix(rest, encryptedSuffix) {
		plain, err := c.encryption.Decrypt(out)
		if err != nil {
			return nil, err
		}
		out = plain
		rest = strings.TrimSuffix(rest, encryptedSuffix)
	}

	algorithm, _ := c.compressor.AlgorithmForName(rest)
	if algorithm != CompressionTypeNone {
		plain, err := c.compressor.Decompress(out, algorithm)
		if err != nil {
			return nil, err
		}
		out = plain
	}

	return out, nil
}

// Describe reports the codec steps recorded in an object name
func (c *ArtifactCodec) Describe(name string) (CompressionType, bool) {
	encrypted := strings.HasSuffix(name, encryptedSuffix)
	algorithm, _ := c.compressor.AlgorithmForName(strings.TrimSuffix(name, encryptedSuffix))
	return algorithm, encrypted
}
