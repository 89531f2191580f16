// Package wav builds and inspects PCM WAV containers.
package wav

import "encoding/binary"

const (
	HeaderSize = 44
	FormatPCM  = 1
)

// WrapPCM prefixes raw little-endian PCM with a canonical 44-byte header.
func WrapPCM(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, HeaderSize)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], FormatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(bitsPerSample))

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	return append(header, pcm...)
}

// Silence returns a mono 16-bit WAV of the given number of zero samples.
func Silence(numSamples, sampleRate int) []byte {
	return WrapPCM(make([]byte, numSamples*2), sampleRate, 1, 16)
}

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// SampleRate reads the sample rate from a canonical header, or 0.
func SampleRate(data []byte) int {
	if !IsWAV(data) || len(data) < HeaderSize {
		return 0
	}
	return int(binary.LittleEndian.Uint32(data[24:28]))
}
