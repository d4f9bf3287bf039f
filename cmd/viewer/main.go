// Command viewer is a terminal front-end for the live seat map. It
// runs a full synchronization session against a server: seeds from the
// snapshot, follows the broadcast stream, and commits edits typed at
// the prompt through the same optimistic/debounced path a graphical
// client would use.
//
// Commands:
//
//	set <section> <row> <number> <block> <name...>   assign a seat
//	clear <section> <row> <number> <block>           free a seat
//	get <section> <row> <number> <block>             show one seat
//	occupied                                         list occupied seats
//	state                                            print session state
//	quit                                             end the session
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"seatmap/internal/layout"
	"seatmap/internal/model"
	"seatmap/internal/viewer"
)

func main() {
	_ = godotenv.Load()

	server := flag.String("server", envOr("SEATMAP_SERVER", "http://localhost:8080"), "seat map server base URL")
	flag.Parse()

	client := viewer.NewClient(*server)
	session := viewer.Start(client, viewer.Options{
		Notify: func(severity, message string) {
			fmt.Printf("[%s] %s\n", severity, message)
		},
	})
	defer session.Terminate()

	fmt.Printf("connected to %s, %d seats in the house\n", *server, len(layout.AllSeats()))

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit", "exit":
			return
		case "state":
			fmt.Println(session.State())
		case "occupied":
			for key, name := range session.View().Occupied() {
				fmt.Printf("%s: %s\n", key, name)
			}
		case "get":
			key, ok := parseKey(fields[1:])
			if !ok {
				fmt.Println("usage: get <section> <row> <number> <block>")
				continue
			}
			if name, occupied := session.View().Effective(key); occupied {
				fmt.Printf("%s: %s\n", key, name)
			} else {
				fmt.Printf("%s: free\n", key)
			}
		case "set":
			key, ok := parseKey(fields[1:])
			if !ok || len(fields) < 6 {
				fmt.Println("usage: set <section> <row> <number> <block> <name...>")
				continue
			}
			if !layout.Contains(key) {
				fmt.Printf("no such seat: %s\n", key)
				continue
			}
			session.Edit(key, strings.Join(fields[5:], " "))
		case "clear":
			key, ok := parseKey(fields[1:])
			if !ok {
				fmt.Println("usage: clear <section> <row> <number> <block>")
				continue
			}
			session.Edit(key, "")
		default:
			fmt.Println("commands: set, clear, get, occupied, state, quit")
		}
	}
}

func parseKey(fields []string) (model.SeatKey, bool) {
	if len(fields) < 4 {
		return model.SeatKey{}, false
	}
	num, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil || num == 0 {
		return model.SeatKey{}, false
	}
	return model.SeatKey{
		Section: strings.ToLower(fields[0]),
		Row:     strings.ToUpper(fields[1]),
		Number:  uint32(num),
		Block:   strings.ToLower(fields[3]),
	}, true
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
