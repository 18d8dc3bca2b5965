package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"
)

// stateMessage mirrors the server's push envelope.
type stateMessage struct {
	Type        string    `json:"type"`
	Board       [6][7]int `json:"board"`
	ActiveSeat  int       `json:"active_seat"`
	Finished    bool      `json:"finished"`
	Winner      *int      `json:"winner"`
	Seat        *int      `json:"seat,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Message     string    `json:"message,omitempty"`
}

func main() {
	cmd := &cli.Command{
		Name:  "connect4-client",
		Usage: "interactive websocket client for the connect4 game server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "localhost:8000", Usage: "server address"},
			&cli.StringFlag{Name: "room", Required: true, Usage: "room id"},
			&cli.StringFlag{Name: "player", Required: true, Usage: "player id"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	u := url.URL{
		Scheme: "ws",
		Host:   cmd.String("addr"),
		Path:   fmt.Sprintf("/ws/%s/%s", cmd.String("room"), cmd.String("player")),
	}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			var msg stateMessage
			if err := c.ReadJSON(&msg); err != nil {
				log.Println("Read error:", err)
				return
			}
			switch msg.Type {
			case "state":
				printBoard(&msg)
			case "error":
				log.Println("Server error:", msg.Message)
			}
		}
	}()

	fmt.Println("Enter a column number (0-6) to play, 'reset' to restart, 'quit' to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "quit":
			return nil
		case line == "reset":
			if err := c.WriteJSON(map[string]string{"type": "reset_game"}); err != nil {
				return err
			}
		default:
			column, err := strconv.Atoi(line)
			if err != nil {
				fmt.Println("Enter a column number, 'reset' or 'quit'.")
				continue
			}
			payload, _ := json.Marshal(map[string]interface{}{
				"type":   "make_move",
				"column": column,
			})
			if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
				return err
			}
		}

		select {
		case <-done:
			return nil
		default:
		}
	}
	return scanner.Err()
}

func printBoard(msg *stateMessage) {
	marks := map[int]string{0: ".", 1: "X", 2: "O"}
	fmt.Println(" 0 1 2 3 4 5 6")
	for _, row := range msg.Board {
		for _, cell := range row {
			fmt.Printf(" %s", marks[cell])
		}
		fmt.Println()
	}
	if msg.Finished {
		if msg.Winner != nil {
			fmt.Printf("Game over, seat %d wins!\n", *msg.Winner)
		} else {
			fmt.Println("Game over, draw!")
		}
		return
	}
	fmt.Printf("Seat %d to move.\n", msg.ActiveSeat)
}
