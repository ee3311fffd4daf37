package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/maralabs/gomara/internal/store"
)

func init() {
	chatCmd := &cobra.Command{Use: "chat", Short: "Talk with Mara"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			active, _ := a.chat.ActiveID()
			for _, s := range a.chat.List() {
				marker := " "
				if s.ID == active {
					marker = "*"
				}
				fmt.Printf("%s %s  %s  (%d messages, %s)\n",
					marker, s.ID, s.Title, len(s.Messages),
					time.UnixMilli(s.LastUpdated).Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
	chatCmd.AddCommand(listCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()
			return a.chat.Delete(args[0])
		},
	}
	chatCmd.AddCommand(deleteCmd)

	var resume string
	openCmd := &cobra.Command{
		Use:   "open",
		Short: "Open a conversation and talk until EOF",
		RunE: func(cmd *cobra.Command, args []string) error {
			if os.Getenv("MARA_GENAI_API_KEY") == "" {
				return fmt.Errorf("MARA_GENAI_API_KEY is not set")
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			sess, err := resumeOrStart(a, resume)
			if err != nil {
				return err
			}

			for _, m := range sess.Messages {
				printTurn(string(m.Role), m.Text)
			}

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("you> ")
				if !scanner.Scan() {
					break
				}
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}
				reply, err := a.chat.SendMessage(context.Background(), sess.ID, text)
				if err != nil {
					return err
				}
				printTurn("mara", reply.Text)
			}
			return scanner.Err()
		},
	}
	openCmd.Flags().StringVarP(&resume, "session", "i", "", "Session id to resume (default: new conversation)")
	chatCmd.AddCommand(openCmd)

	rootCmd.AddCommand(chatCmd)
}

func resumeOrStart(a *app, id string) (*store.ChatSession, error) {
	if id == "" {
		return a.chat.StartNew()
	}
	return a.chat.Open(id)
}

func printTurn(role, text string) {
	fmt.Printf("%s> %s\n", role, text)
}
