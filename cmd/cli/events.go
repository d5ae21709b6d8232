package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newEventsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow the event stream",
	}

	var (
		tcpAddr string
		wsURL   string
		pretty  bool
	)
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print events as they arrive (WebSocket by default, TCP with --tcp)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tcpAddr != "" {
				return c.watchTCP(tcpAddr, pretty)
			}
			endpoint := wsURL
			if endpoint == "" {
				var err error
				endpoint, err = websocketURL(c.baseURL, "/ws")
				if err != nil {
					return fmt.Errorf("ws url: %w", err)
				}
			}
			return c.watchWS(endpoint, pretty)
		},
	}
	watch.Flags().StringVar(&tcpAddr, "tcp", "", "TCP event server address, e.g. 127.0.0.1:7070")
	watch.Flags().StringVar(&wsURL, "ws", "", "WebSocket URL (defaults to /ws on the API host)")
	watch.Flags().BoolVar(&pretty, "pretty", false, "pretty print JSON events")

	cmd.AddCommand(watch)
	return cmd
}

func (c *cli) watchWS(endpoint string, pretty bool) error {
	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.printEvent(msg, pretty)
	}
}

func (c *cli) watchTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		c.printEvent(sc.Bytes(), pretty)
	}
	return sc.Err()
}

func (c *cli) printEvent(line []byte, pretty bool) {
	if !pretty {
		fmt.Fprintln(c.out, string(line))
		return
	}
	var obj map[string]any
	if err := json.Unmarshal(line, &obj); err != nil {
		fmt.Fprintln(c.out, string(line))
		return
	}
	b, _ := json.MarshalIndent(obj, "", "  ")
	fmt.Fprintln(c.out, string(b))
}
