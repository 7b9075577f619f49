package main

import (
	"github.com/spf13/cobra"

	"github.com/omni/festival-greetings/relay"
)

var lastCmd = &cobra.Command{
	Use:   "last",
	Short: "Print the last greeting delivered to the receiver contract",
	Args:  cobra.NoArgs,
	RunE:  runLast,
}

type lastReceivedOutput struct {
	Received  bool        `json:"received"`
	MessageID string      `json:"messageId,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Raw       string      `json:"raw,omitempty"`
	Message   string      `json:"message,omitempty"`
}

func runLast(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	readBack := relay.NewReadBack(a.logger.WithField("service", "read_back"), a.newReceiverContract())
	last, err := readBack.Refresh(cmd.Context())
	if err != nil {
		return err
	}
	out := &lastReceivedOutput{
		Received: last.Received(),
		Message:  last.Fallback(),
	}
	if last.Received() {
		out.MessageID = last.MessageID.String()
		out.Raw = last.Raw
	}
	if last.Payload != nil {
		out.Payload = last.Payload
	}
	return printJSON(cmd.OutOrStdout(), out)
}
