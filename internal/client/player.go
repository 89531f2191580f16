package client

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
)

var ErrNoPlayerCommand = errors.New("no player command configured")

// FilePlayer writes each clip to a .wav file and, when a command is set,
// plays it with that command (for example "aplay" or "afplay").
type FilePlayer struct {
	dir     string
	command []string

	mu      sync.Mutex
	current string
	cmd     *exec.Cmd
}

func NewFilePlayer(dir string, command []string) *FilePlayer {
	return &FilePlayer{dir: dir, command: command}
}

// Path is the file holding the current clip.
func (p *FilePlayer) Path() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *FilePlayer) Load(audio []byte) error {
	f, err := os.CreateTemp(p.dir, "voice-*.wav")
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	if _, err := f.Write(audio); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("write audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	if p.current != "" {
		os.Remove(p.current)
	}
	p.current = f.Name()
	return nil
}

func (p *FilePlayer) Play(onEnd func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == "" {
		return ErrNoAudio
	}
	if len(p.command) == 0 {
		return ErrNoPlayerCommand
	}

	args := append(append([]string{}, p.command[1:]...), p.current)
	cmd := exec.Command(p.command[0], args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start player: %w", err)
	}
	p.cmd = cmd

	go func() {
		_ = cmd.Wait()
		p.mu.Lock()
		natural := p.cmd == cmd
		if natural {
			p.cmd = nil
		}
		p.mu.Unlock()
		if natural && onEnd != nil {
			onEnd()
		}
	}()
	return nil
}

func (p *FilePlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

// Close stops playback and removes the clip file.
func (p *FilePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	if p.current == "" {
		return nil
	}
	err := os.Remove(p.current)
	p.current = ""
	return err
}

func (p *FilePlayer) stopLocked() error {
	cmd := p.cmd
	p.cmd = nil
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
