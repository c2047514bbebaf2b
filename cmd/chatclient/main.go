package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spidervirus/FutureSelf/chat"
)

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	SessionKey  string `json:"session_key"`
	AccessToken string `json:"access_token"`
	User        struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"user"`
}

// renderer prints session events to the terminal. Assistant replies arrive
// as whole-message snapshots, so it tracks how much of each message has
// already been printed and emits only the new tail.
type renderer struct {
	printed map[string]int
	done    chan struct{}
}

func newRenderer() *renderer {
	return &renderer{
		printed: make(map[string]int),
		done:    make(chan struct{}, 4),
	}
}

// settle signals the main loop that the current exchange is over
func (r *renderer) settle() {
	select {
	case r.done <- struct{}{}:
	default:
	}
}

func (r *renderer) observe(ev chat.Event) {
	msg := ev.Message
	switch ev.Kind {
	case chat.EventMessageAdded:
		if msg.Author == chat.AuthorAssistant {
			fmt.Print("Future Self: ")
		} else if msg.Author == chat.AuthorUser && msg.Status == chat.StatusPending {
			fmt.Printf("You (voice): %s\n", msg.Text)
		}
	case chat.EventMessageUpdated:
		switch {
		case msg.Status == chat.StatusFailed:
			fmt.Printf("\nError: %s\n", msg.Failure)
			r.settle()
		case msg.Author == chat.AuthorAssistant:
			fmt.Print(msg.Text[r.printed[msg.ID]:])
			r.printed[msg.ID] = len(msg.Text)
			if msg.Status == chat.StatusComplete {
				fmt.Println()
				r.settle()
			}
		case msg.Author == chat.AuthorUser && msg.Status == chat.StatusComplete:
			fmt.Printf("You said: %s\n", msg.Text)
		}
	}
}

func main() {
	server := flag.String("server", "http://localhost:8080", "Server URL (http/https)")
	email := flag.String("email", "", "User email for authentication")
	password := flag.String("password", "", "User password for authentication")
	history := flag.Int("history", 50, "Number of prior messages to load")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Println("Error: -email and -password are required")
		flag.Usage()
		os.Exit(1)
	}

	auth, err := authenticate(*server, *email, *password)
	if err != nil {
		fmt.Printf("Authentication failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Authenticated as %s\n", auth.User.Name)

	ctx := context.Background()
	authCtx := chat.AuthContext{UserID: auth.User.ID, AccessToken: auth.AccessToken}
	client := chat.NewClient(chat.Config{
		BaseURL: strings.TrimSuffix(*server, "/") + "/api/1.0",
		Auth:    authCtx,
	})
	session := chat.NewSession(client, chat.NewRemoteStore(client), authCtx)
	defer session.Close()

	if err := session.LoadHistory(ctx, *history); err != nil {
		fmt.Printf("Failed to load history: %v\n", err)
	}
	for _, msg := range session.Messages() {
		if msg.Author == chat.AuthorAssistant {
			fmt.Printf("Future Self: %s\n", msg.Text)
		} else {
			fmt.Printf("You: %s\n", msg.Text)
		}
	}

	// subscribe after history renders so loaded messages are not printed twice
	r := newRenderer()
	session.Subscribe(r.observe)

	recorder := chat.NewMemoryRecorder()
	pipeline := chat.NewVoicePipeline(client, session, recorder)
	analyzer := chat.NewAnalyzer(client, authCtx)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("\nYou: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.ToLower(input) == "exit" || strings.ToLower(input) == "quit" {
			fmt.Println("Goodbye!")
			return
		}

		switch {
		case strings.HasPrefix(input, "/voice "):
			if sendVoice(ctx, pipeline, recorder, strings.TrimPrefix(input, "/voice ")) {
				<-r.done
			}
		case strings.HasPrefix(input, "/say "):
			saveSpeech(ctx, pipeline, strings.TrimPrefix(input, "/say "))
		case strings.HasPrefix(input, "/emotion "):
			printAnalysis(analyzer.Emotion(ctx, strings.TrimPrefix(input, "/emotion ")))
		case strings.HasPrefix(input, "/bias "):
			printAnalysis(analyzer.Bias(ctx, strings.TrimPrefix(input, "/bias ")))
		default:
			if _, err := session.Submit(ctx, input); err != nil {
				fmt.Printf("Failed to send message: %v\n", err)
				continue
			}
			<-r.done
		}
	}
}

// sendVoice feeds a WAV file through the voice pipeline as if it had been
// recorded live. It reports whether an exchange was started.
func sendVoice(ctx context.Context, pipeline *chat.VoicePipeline, recorder *chat.MemoryRecorder, path string) bool {
	audio, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Failed to read %s: %v\n", path, err)
		return false
	}

	if err := pipeline.StartCapture(); err != nil {
		fmt.Printf("Failed to start capture: %v\n", err)
		return false
	}
	recorder.Feed(audio)

	msg, err := pipeline.StopCapture(ctx)
	if err != nil {
		fmt.Printf("Failed to send voice message: %v\n", err)
		return false
	}
	return msg.ID != ""
}

// saveSpeech asks the backend to speak text and writes the audio next to the
// terminal as reply.wav
func saveSpeech(ctx context.Context, pipeline *chat.VoicePipeline, text string) {
	audio, err := pipeline.Synthesize(ctx, text)
	if err != nil {
		fmt.Printf("Failed to synthesize: %v\n", err)
		return
	}
	if err := os.WriteFile("reply.wav", audio, 0644); err != nil {
		fmt.Printf("Failed to write reply.wav: %v\n", err)
		return
	}
	fmt.Printf("Wrote %d bytes to reply.wav\n", len(audio))
}

func printAnalysis(result json.RawMessage, err error) {
	if err != nil {
		fmt.Printf("Analysis failed: %v\n", err)
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err != nil {
		fmt.Println(string(result))
		return
	}
	fmt.Println(pretty.String())
}

func authenticate(serverURL, email, password string) (*authResponse, error) {
	body, err := json.Marshal(authRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := http.Post(strings.TrimSuffix(serverURL, "/")+"/api/1.0/auth", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("authentication failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	auth := new(authResponse)
	if err := json.NewDecoder(resp.Body).Decode(auth); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return auth, nil
}
