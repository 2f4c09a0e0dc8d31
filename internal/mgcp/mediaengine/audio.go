package mediaengine

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/zaf/g711"
)

// wavFile is the parsed metadata and PCM payload of one announcement
// file on disk.
type wavFile struct {
	SampleRate  uint32
	NumChannels uint16
	PCMData     []byte
}

// readWAVFile parses a WAV file and returns its 16-bit PCM payload.
func readWAVFile(path string) (*wavFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	riffID := make([]byte, 4)
	if _, err := io.ReadFull(f, riffID); err != nil || string(riffID) != "RIFF" {
		return nil, fmt.Errorf("%s: not a RIFF file", path)
	}
	if _, err := f.Seek(4, io.SeekCurrent); err != nil { // skip RIFF size
		return nil, err
	}
	waveID := make([]byte, 4)
	if _, err := io.ReadFull(f, waveID); err != nil || string(waveID) != "WAVE" {
		return nil, fmt.Errorf("%s: not a WAVE file", path)
	}

	wav := &wavFile{}
	for {
		chunkID := make([]byte, 4)
		if _, err := io.ReadFull(f, chunkID); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("read chunk id: %w", err)
		}
		var chunkSize uint32
		if err := binary.Read(f, binary.LittleEndian, &chunkSize); err != nil {
			return nil, fmt.Errorf("read chunk size: %w", err)
		}

		switch string(chunkID) {
		case "fmt ":
			var audioFormat uint16
			if err := binary.Read(f, binary.LittleEndian, &audioFormat); err != nil {
				return nil, err
			}
			if audioFormat != 1 {
				return nil, fmt.Errorf("%s: only PCM WAV is supported, got format %d", path, audioFormat)
			}
			if err := binary.Read(f, binary.LittleEndian, &wav.NumChannels); err != nil {
				return nil, err
			}
			if err := binary.Read(f, binary.LittleEndian, &wav.SampleRate); err != nil {
				return nil, err
			}
			if _, err := f.Seek(int64(chunkSize-8), io.SeekCurrent); err != nil {
				return nil, err
			}
		case "data":
			data := make([]byte, chunkSize)
			if _, err := io.ReadFull(f, data); err != nil {
				return nil, fmt.Errorf("read audio data: %w", err)
			}
			wav.PCMData = data
			return wav, nil
		default:
			if _, err := f.Seek(int64(chunkSize), io.SeekCurrent); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("%s: no data chunk found", path)
}

// toMono8kHz downmixes and resamples the file's PCM payload to 8kHz
// mono 16-bit, the rate PCMU/PCMA encode from.
func toMono8kHz(w *wavFile) ([]byte, error) {
	var mono []byte
	switch w.NumChannels {
	case 1:
		mono = w.PCMData
	case 2:
		mono = make([]byte, len(w.PCMData)/2)
		for i := 0; i+3 < len(w.PCMData); i += 4 {
			left := int16(w.PCMData[i]) | int16(w.PCMData[i+1])<<8
			right := int16(w.PCMData[i+2]) | int16(w.PCMData[i+3])<<8
			m := (int32(left) + int32(right)) / 2
			binary.LittleEndian.PutUint16(mono[i/2:], uint16(m))
		}
	default:
		return nil, fmt.Errorf("unsupported channel count: %d", w.NumChannels)
	}

	if w.SampleRate == 8000 {
		return mono, nil
	}
	return resampleLinear(mono, w.SampleRate, 8000), nil
}

// resampleLinear does simple linear-interpolation resampling, enough
// fidelity for announcement prompts (no codec negotiation beyond
// 8kHz telephony rates is in scope).
func resampleLinear(pcm []byte, from, to uint32) []byte {
	ratio := float64(from) / float64(to)
	inSamples := len(pcm) / 2
	outSamples := int(float64(inSamples) / ratio)
	out := make([]byte, 0, outSamples*2)

	for i := 0; i < outSamples; i++ {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		if idx+1 >= inSamples {
			break
		}
		frac := srcPos - float64(idx)
		s1 := int16(pcm[idx*2]) | int16(pcm[idx*2+1])<<8
		s2 := int16(pcm[(idx+1)*2]) | int16(pcm[(idx+1)*2+1])<<8
		interp := int16(float64(s1)*(1-frac) + float64(s2)*frac)
		out = binary.LittleEndian.AppendUint16(out, uint16(interp))
	}
	return out
}

// encodeForCodec converts 8kHz mono 16-bit PCM to the wire format for
// codecPT (PCMU or PCMA payload type).
func encodeForCodec(pcm []byte, codecPT uint8) ([]byte, error) {
	switch codecPT {
	case pcmuPayloadType:
		return g711.EncodeUlaw(pcm), nil
	case pcmaPayloadType:
		return g711.EncodeAlaw(pcm), nil
	default:
		return nil, fmt.Errorf("unsupported codec payload type: %d", codecPT)
	}
}

// loadPrompt reads, resamples, and encodes one announcement by name
// (the "uri" PlayCollect plays is a bare name resolved under
// audioBasePath, spec §5 "audio-path configuration").
func loadPrompt(audioBasePath, name string, codecPT uint8) ([]byte, error) {
	path := audioBasePath + "/" + name + ".wav"
	w, err := readWAVFile(path)
	if err != nil {
		return nil, err
	}
	mono, err := toMono8kHz(w)
	if err != nil {
		return nil, err
	}
	return encodeForCodec(mono, codecPT)
}
