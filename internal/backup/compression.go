package backup

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionStats describes one compression pass
type CompressionStats struct {
	OriginalSize     int64           `json:"original_size"`
	CompressedSize   int64           `json:"compressed_size"`
	CompressionRatio float64         `json:"compression_ratio"`
	Algorithm        CompressionType `json:"algorithm"`
	Level            int             `json:"level"`
	Duration         time.Duration   `json:"duration"`
}

// Compressor is one compression algorithm
type Compressor interface {
	Compress(data []byte, level int) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Algorithm() CompressionType
	DefaultLevel() int
	LevelRange() (min, max int)
}

var defaultCompressors = map[CompressionType]Compressor{
	CompressionTypeGzip: gzipCompressor{},
	CompressionTypeLZ4:  lz4Compressor{},
	CompressionTypeZstd: zstdCompressor{},
}

// CompressionManager picks a compressor by algorithm or by object name
// suffix
type CompressionManager struct {
	compressors map[CompressionType]Compressor
}

func NewCompressionManager() *CompressionManager {
	return &CompressionManager{compressors: defaultCompressors}
}

// Compress compresses data. Out of range levels fall back to the default.
func (cm *CompressionManager) Compress(data []byte, algorithm CompressionType, level int) ([]byte, *CompressionStats, error) {
	stats := &CompressionStats{
		OriginalSize: int64(len(data)),
		Algorithm:    algorithm,
		Level:        level,
	}

	if algorithm == CompressionTypeNone {
		stats.CompressedSize = stats.OriginalSize
		stats.CompressionRatio = 1.0
		return data, stats, nil
	}

	compressor, exists := cm.compressors[algorithm]
	if !exists {
		return nil, nil, unsupportedAlgorithm(algorithm)
	}

	if lo, hi := compressor.LevelRange(); level < lo || level > hi {
		level = compressor.DefaultLevel()
		stats.Level = level
	}

	start := time.Now()
	out, err := compressor.Compress(data, level)
	if err != nil {
		return nil, nil, err
	}

	stats.Duration = time.Since(start)
	stats.CompressedSize = int64(len(out))
	stats.CompressionRatio = CalculateCompressionRatio(stats.OriginalSize, stats.CompressedSize)
	return out, stats, nil
}

// Decompress reverses Compress; NONE returns data unchanged
func (cm *CompressionManager) Decompress(data []byte, algorithm CompressionType) ([]byte, error) {
	if algorithm == CompressionTypeNone {
		return data, nil
	}

	compressor, exists := cm.compressors[algorithm]
	if !exists {
		return nil, unsupportedAlgorithm(algorithm)
	}

	return compressor.Decompress(data)
}

// AlgorithmForName detects the compression suffix of an object name.
// The name may still carry an encryption suffix after it is stripped.
func (cm *CompressionManager) AlgorithmForName(name string) (CompressionType, string) {
	for algorithm := range cm.compressors {
		ext := algorithm.Extension()
		if strings.HasSuffix(name, ext) {
			return algorithm, strings.TrimSuffix(name, ext)
		}
	}
	return CompressionTypeNone, name
}

// ShouldCompress reports whether data of dataSize reaches the threshold
func (cm *CompressionManager) ShouldCompress(dataSize int64, threshold int64) bool {
	return dataSize >= threshold
}

// CalculateCompressionRatio is compressed/original, 1 for empty input
func CalculateCompressionRatio(originalSize, compressedSize int64) float64 {
	if originalSize == 0 {
		return 1.0
	}
	return float64(compressedSize) / float64(originalSize)
}

type gzipCompressor struct{}

func (gzipCompressor) Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, NewCompressionError("gzip: bad level", err)
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, NewCompressionError("gzip: writing workbook", err)
	}

	if err := writer.Close(); err != nil {
		return nil, NewCompressionError("gzip: flushing workbook", err)
	}
	return buf.Bytes(), nil
}

func (gzipCompressor) Decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, NewCompressionError("gzip: artifact header is invalid", err)
	}
	defer reader.Close()

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, NewCompressionError("gzip: artifact is truncated or corrupt", err)
	}
	return out, nil
}

func (gzipCompressor) Algorithm() CompressionType { return CompressionTypeGzip }
func (gzipCompressor) DefaultLevel() int          { return 6 }
func (gzipCompressor) LevelRange() (int, int)     { return gzip.BestSpeed, gzip.BestCompression }

type lz4Compressor struct{}

func (lz4Compressor) Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)

	// lz4 only distinguishes fast and high compression
	if level > 6 {
		if err := writer.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
			return nil, NewCompressionError("lz4: bad level", err)
		}
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, NewCompressionError("lz4: writing workbook", err)
	}

	if err := writer.Close(); err != nil {
		return nil, NewCompressionError("lz4: flushing workbook", err)
	}
	return buf.Bytes(), nil
}

func (lz4Compressor) Decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, NewCompressionError("lz4: artifact is truncated or corrupt", err)
	}
	return out, nil
}

func (lz4Compressor) Algorithm() CompressionType { return CompressionTypeLZ4 }
func (lz4Compressor) DefaultLevel() int          { return 1 }
func (lz4Compressor) LevelRange() (int, int)     { return 1, 12 }

type zstdCompressor struct{}

func (zstdCompressor) Compress(data []byte, level int) ([]byte, error) {
	encoderLevel := zstd.SpeedFastest
	switch {
	case level <= 1:
		encoderLevel = zstd.SpeedFastest
	case level <= 3:
		encoderLevel = zstd.SpeedDefault
	case level <= 6:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		encoderLevel = zstd.SpeedBestCompression
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encoderLevel))
	if err != nil {
		return nil, NewCompressionError("zstd: encoder setup", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func (zstdCompressor) Decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, NewCompressionError("zstd: decoder setup", err)
	}
	defer decoder.Close()

	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, NewCompressionError("zstd: artifact is truncated or corrupt", err)
	}
	return out, nil
}

func (zstdCompressor) Algorithm() CompressionType { return CompressionTypeZstd }
func (zstdCompressor) DefaultLevel() int          { return 3 }
func (zstdCompressor) LevelRange() (int, int)     { return 1, 22 }

func unsupportedAlgorithm(algorithm CompressionType) error {
	return NewCompressionError(fmt.Sprintf("no compressor for %q", algorithm), nil)
}
