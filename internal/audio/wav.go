package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// WAV format codes from the fmt chunk.
const (
	formatPCM       = 1
	formatIEEEFloat = 3
)

// WavInfo describes the format of a WAV file without its sample data.
type WavInfo struct {
	SampleRate    int
	NumChannels   int
	BitsPerSample int
	Format        int
	NumSamples    int // per channel
}

// Duration returns the audio duration in seconds.
func (i WavInfo) Duration() float64 {
	if i.SampleRate == 0 {
		return 0
	}
	return float64(i.NumSamples) / float64(i.SampleRate)
}

// IsNormalized reports whether the file already matches the pipeline input
// format: 16 kHz, mono, PCM16 or 32-bit float.
func (i WavInfo) IsNormalized() bool {
	if i.SampleRate != 16000 || i.NumChannels != 1 {
		return false
	}
	switch {
	case i.Format == formatPCM && i.BitsPerSample == 16:
		return true
	case i.Format == formatIEEEFloat && i.BitsPerSample == 32:
		return true
	}
	return false
}

// Probe reads the RIFF headers of a WAV file and returns its format info.
func Probe(path string) (WavInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return WavInfo{}, err
	}
	defer f.Close()

	info, _, err := parseHeaders(f)
	return info, err
}

// ReadWav reads a WAV file and returns mono float32 samples and the sample
// rate. Multi-channel audio is downmixed by taking the mean across channels.
func ReadWav(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	info, dataSize, err := parseHeaders(f)
	if err != nil {
		return nil, 0, err
	}

	data := make([]byte, dataSize)
	n, err := io.ReadFull(f, data)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		data = data[:n]
	} else if err != nil {
		return nil, 0, fmt.Errorf("failed to read audio data: %w", err)
	}

	bytesPerSample := info.BitsPerSample / 8
	frameSize := bytesPerSample * info.NumChannels
	if frameSize == 0 {
		return nil, 0, fmt.Errorf("invalid frame size")
	}
	numFrames := len(data) / frameSize

	samples := make([]float32, numFrames)
	for i := 0; i < numFrames; i++ {
		var sum float64
		for ch := 0; ch < info.NumChannels; ch++ {
			off := i*frameSize + ch*bytesPerSample
			var v float64
			switch info.Format {
			case formatPCM:
				switch info.BitsPerSample {
				case 16:
					v = float64(int16(binary.LittleEndian.Uint16(data[off:off+2]))) / 32768.0
				case 32:
					v = float64(int32(binary.LittleEndian.Uint32(data[off:off+4]))) / 2147483648.0
				default:
					return nil, 0, fmt.Errorf("unsupported PCM bit depth: %d", info.BitsPerSample)
				}
			case formatIEEEFloat:
				v = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4])))
			default:
				return nil, 0, fmt.Errorf("unsupported WAV format code: %d", info.Format)
			}
			sum += v
		}
		samples[i] = float32(sum / float64(info.NumChannels))
	}

	return samples, info.SampleRate, nil
}

// parseHeaders walks the RIFF chunks up to the data chunk. The reader is
// left positioned at the first byte of sample data.
func parseHeaders(f *os.File) (WavInfo, int64, error) {
	riffHeader := make([]byte, 12)
	if _, err := io.ReadFull(f, riffHeader); err != nil {
		return WavInfo{}, 0, fmt.Errorf("failed to read RIFF header: %w", err)
	}
	if string(riffHeader[0:4]) != "RIFF" || string(riffHeader[8:12]) != "WAVE" {
		return WavInfo{}, 0, fmt.Errorf("not a valid WAV file")
	}

	var info WavInfo
	var dataSize int64
	var foundFmt, foundData bool

	for !foundData {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(f, chunkHeader); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return WavInfo{}, 0, fmt.Errorf("failed to read chunk header: %w", err)
		}

		chunkID := string(chunkHeader[0:4])
		chunkSize := int64(binary.LittleEndian.Uint32(chunkHeader[4:8]))

		switch chunkID {
		case "fmt ":
			fmtData := make([]byte, chunkSize)
			if _, err := io.ReadFull(f, fmtData); err != nil {
				return WavInfo{}, 0, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			if len(fmtData) >= 16 {
				info.Format = int(binary.LittleEndian.Uint16(fmtData[0:2]))
				info.NumChannels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
				info.SampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
				info.BitsPerSample = int(binary.LittleEndian.Uint16(fmtData[14:16]))
			}
			foundFmt = true

		case "data":
			dataSize = chunkSize
			foundData = true

		default:
			// Skip LIST, INFO and other chunks.
			if _, err := f.Seek(chunkSize, io.SeekCurrent); err != nil {
				return WavInfo{}, 0, fmt.Errorf("failed to skip chunk %s: %w", chunkID, err)
			}
		}

		// Chunks are word-aligned.
		if chunkSize%2 != 0 && chunkID != "data" {
			f.Seek(1, io.SeekCurrent)
		}
	}

	if !foundFmt {
		return WavInfo{}, 0, fmt.Errorf("fmt chunk not found")
	}
	if !foundData {
		return WavInfo{}, 0, fmt.Errorf("data chunk not found")
	}
	if info.NumChannels == 0 || info.BitsPerSample == 0 {
		return WavInfo{}, 0, fmt.Errorf("invalid fmt chunk")
	}

	info.NumSamples = int(dataSize) / (info.BitsPerSample / 8 * info.NumChannels)
	return info, dataSize, nil
}

// WritePCM16Wav wraps raw little-endian PCM16 sample data in a RIFF/WAV
// container with the given sample rate, single channel.
func WritePCM16Wav(w io.Writer, pcm []byte, sampleRate int) error {
	const (
		numChannels   = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8

	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], formatPCM)
	binary.LittleEndian.PutUint16(header[22:24], numChannels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}

// WriteFloat32Wav writes mono float32 samples as a 16-bit PCM WAV file.
func WriteFloat32Wav(path string, samples []float32, sampleRate int) error {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s
		if v > 1 {
			v = 1
		}
		if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*32767)))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WritePCM16Wav(f, pcm, sampleRate)
}
