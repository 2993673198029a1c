package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"poolchat/internal/chatui"
)

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal; /reset clears the conversation, /quit exits",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return opts.chat(ctx)
		},
	}
}

func (o *options) chat(ctx context.Context) error {
	drv, sess, err := o.buildDriver()
	if err != nil {
		return err
	}
	defer sess.Close()
	ui := chatui.New(drv, chatui.Config{In: os.Stdin, Out: os.Stdout, Logger: o.log})
	return ui.Run(ctx)
}
