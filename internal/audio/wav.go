package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

const wavHeaderSize = 44

// WAVWriter streams 16-bit mono PCM into a WAV file. The RIFF and data chunk
// sizes are patched when the writer is closed, so Close must run before the
// file is handed to a reader.
type WAVWriter struct {
	f       *os.File
	dataLen uint32
}

// NewWAVWriter creates path (truncating an existing file) and reserves the
// header.
func NewWAVWriter(path string) (*WAVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("audio: create wav: %w", err)
	}
	if _, err := f.Write(wavHeader(0)); err != nil {
		f.Close()
		return nil, fmt.Errorf("audio: write wav header: %w", err)
	}
	return &WAVWriter{f: f}, nil
}

// Write appends raw PCM bytes to the data chunk.
func (w *WAVWriter) Write(pcm []byte) (int, error) {
	n, err := w.f.Write(pcm)
	w.dataLen += uint32(n)
	if err != nil {
		return n, fmt.Errorf("audio: write wav data: %w", err)
	}
	return n, nil
}

// WriteFrame appends a frame's samples.
func (w *WAVWriter) WriteFrame(f Frame) error {
	_, err := w.Write(f.PCM)
	return err
}

// Duration returns the play time written so far.
func (w *WAVWriter) Duration() time.Duration {
	return Duration(int(w.dataLen))
}

// Close patches the chunk sizes and syncs the file to disk.
func (w *WAVWriter) Close() error {
	if w.f == nil {
		return nil
	}
	defer func() { w.f = nil }()
	if _, err := w.f.WriteAt(wavHeader(w.dataLen), 0); err != nil {
		w.f.Close()
		return fmt.Errorf("audio: finalise wav header: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return fmt.Errorf("audio: sync wav: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("audio: close wav: %w", err)
	}
	return nil
}

func wavHeader(dataLen uint32) []byte {
	h := make([]byte, wavHeaderSize)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], 36+dataLen)
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:24], Channels)
	binary.LittleEndian.PutUint32(h[24:28], SampleRate)
	binary.LittleEndian.PutUint32(h[28:32], SampleRate*Channels*BytesPerSample)
	binary.LittleEndian.PutUint16(h[32:34], Channels*BytesPerSample)
	binary.LittleEndian.PutUint16(h[34:36], 8*BytesPerSample)
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], dataLen)
	return h
}

// FileSource reads frames from a mono 16 kHz 16-bit WAV file. It is a finite
// source: Next returns io.EOF once the data chunk is exhausted.
type FileSource struct {
	f          *os.File
	remaining  int64
	chunkBytes int
	seq        uint64
}

// OpenWAV validates the file's format and positions the reader at the start
// of the data chunk.
func OpenWAV(path string, chunk time.Duration) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open wav: %w", err)
	}
	dataLen, err := seekWAVData(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileSource{
		f:          f,
		remaining:  dataLen,
		chunkBytes: BytesFor(chunk),
	}, nil
}

// Next returns the following frame or io.EOF at the end of the data chunk.
func (s *FileSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.remaining <= 0 {
		return Frame{}, io.EOF
	}
	want := int64(s.chunkBytes)
	if want > s.remaining {
		want = s.remaining
	}
	buf := make([]byte, want)
	n, err := io.ReadFull(s.f, buf)
	if n == 0 {
		if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("audio: read wav data: %w", err)
	}
	s.remaining -= int64(n)
	frame := Frame{PCM: buf[:n:n], Seq: s.seq}
	s.seq++
	return frame, nil
}

// Close releases the underlying file.
func (s *FileSource) Close() error {
	return s.f.Close()
}

// FileDuration reports the play time of a WAV file's data chunk.
func FileDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("audio: open wav: %w", err)
	}
	defer f.Close()
	dataLen, err := seekWAVData(f)
	if err != nil {
		return 0, err
	}
	return Duration(int(dataLen)), nil
}

// seekWAVData walks the RIFF chunks, validates the format chunk, and leaves
// the reader positioned at the first data byte.
func seekWAVData(f *os.File) (int64, error) {
	var riff [12]byte
	if _, err := io.ReadFull(f, riff[:]); err != nil {
		return 0, fmt.Errorf("audio: read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return 0, fmt.Errorf("audio: not a wav file")
	}
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(f, chunk[:]); err != nil {
			return 0, fmt.Errorf("audio: read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))
		switch id {
		case "fmt ":
			if size < 16 {
				return 0, fmt.Errorf("audio: unsupported wav format (fmt chunk %d bytes)", size)
			}
			fields := make([]byte, size)
			if _, err := io.ReadFull(f, fields); err != nil {
				return 0, fmt.Errorf("audio: read fmt chunk: %w", err)
			}
			format := binary.LittleEndian.Uint16(fields[0:2])
			channels := binary.LittleEndian.Uint16(fields[2:4])
			rate := binary.LittleEndian.Uint32(fields[4:8])
			bits := binary.LittleEndian.Uint16(fields[14:16])
			if format != 1 || channels != Channels || rate != SampleRate || bits != 8*BytesPerSample {
				return 0, fmt.Errorf("audio: unsupported wav format (format=%d channels=%d rate=%d bits=%d)",
					format, channels, rate, bits)
			}
		case "data":
			return size, nil
		default:
			if _, err := f.Seek(size+size%2, io.SeekCurrent); err != nil {
				return 0, fmt.Errorf("audio: skip %q chunk: %w", id, err)
			}
		}
	}
}
