// cmd/voicectl/main.go
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/tahcohcat/chandu-voice/internal/client"
	"github.com/tahcohcat/chandu-voice/internal/logger"
)

const usage = `Commands:
  <text>        prepare and play a spoken reply
  /send <text>  prepare without playing
  /play         play the prepared reply
  /stop         pause playback
  /lang <code>  switch language
  /quit         exit`

func main() {
	endpoint := flag.String("url", "http://localhost:8080/api/voice", "relay endpoint")
	lang := flag.String("lang", "en", "reply language")
	mode := flag.String("mode", "cloned", "voice mode")
	token := flag.String("token", os.Getenv("VOICE_ACCESS_TOKEN"), "relay access token")
	player := flag.String("player", "", `command used to play .wav files, e.g. "aplay -q"`)
	dir := flag.String("dir", os.TempDir(), "directory for audio files")
	text := flag.String("text", "", "speak this text once and exit")
	timeout := flag.Duration("timeout", 2*time.Minute, "request timeout")
	level := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger.SetGlobalLevel(*level)

	fp := client.NewFilePlayer(*dir, strings.Fields(*player))
	defer fp.Close()

	c := client.NewController(client.Options{
		Endpoint: *endpoint,
		Token:    *token,
		Mode:     *mode,
		Timeout:  *timeout,
		Player:   fp,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *text != "" {
		if err := c.Speak(ctx, *text, *lang); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		fmt.Println(fp.Path())
		waitForPlayback(ctx, c)
		return
	}

	fmt.Println(usage)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("[%s %s]> ", *lang, c.State())
		if !scanner.Scan() {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		cmd, arg, _ := strings.Cut(line, " ")

		var err error
		switch cmd {
		case "/quit", "/exit":
			return
		case "/play":
			err = c.Play()
		case "/stop":
			err = c.Stop()
		case "/lang":
			if arg != "" {
				*lang = strings.TrimSpace(arg)
			}
		case "/send":
			err = c.Send(ctx, arg, *lang)
			if err == nil {
				fmt.Println("ready:", fp.Path())
			}
		case "/help":
			fmt.Println(usage)
		default:
			err = c.Speak(ctx, line, *lang)
			if err == nil {
				fmt.Println("audio:", fp.Path())
			}
		}

		if err != nil {
			report(err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func report(err error) {
	var se *client.ServerError
	switch {
	case errors.As(err, &se):
		fmt.Fprintf(os.Stderr, "relay error (%d): %s\n", se.Status, se.Message)
		if se.Details != "" {
			fmt.Fprintf(os.Stderr, "  %s\n", se.Details)
		}
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
	}
}

func waitForPlayback(ctx context.Context, c *client.Controller) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for c.State() == client.Playing {
		select {
		case <-ctx.Done():
			_ = c.Stop()
			return
		case <-ticker.C:
		}
	}
}
