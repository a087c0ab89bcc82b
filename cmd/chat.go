package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lewa0/lewa/internal/app"
	"github.com/lewa0/lewa/internal/catalog"
	"github.com/lewa0/lewa/internal/session"
)

var (
	chatSubject string
	chatMode    string
	chatTool    string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive tutoring chat",
	Long: `Start an interactive tutoring chat.

Inside the chat, lines starting with / are commands:

  /subject <id>   switch subject (resets the conversation)
  /mode <OL|AL>   set proficiency mode
  /tool <id>      enable an augmentation tool
  /tool off       disable augmentation
  /history        reprint the conversation
  /quit           exit`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatSubject, "subject", "s", "", "subject id (see 'lewa subjects')")
	chatCmd.Flags().StringVarP(&chatMode, "mode", "m", "", "proficiency mode: OL or AL")
	chatCmd.Flags().StringVarP(&chatTool, "tool", "t", "", "augmentation tool id (see 'lewa tools')")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			a.Logger.Warn("shutdown", "error", err)
		}
	}()

	out := cmd.OutOrStdout()

	if chatSubject != "" {
		if !selectSubject(a, chatSubject) {
			return fmt.Errorf("unknown subject %q", chatSubject)
		}
	}
	modeFlag := chatMode
	if modeFlag == "" {
		modeFlag = a.Config.Chat.DefaultMode
	}
	if modeFlag != "" {
		mode, ok := session.ParseMode(modeFlag)
		if !ok {
			return fmt.Errorf("invalid mode %q: want OL or AL", modeFlag)
		}
		a.Controller.SelectMode(mode)
	}
	if chatTool != "" {
		if _, ok := catalog.ToolByID(chatTool); !ok {
			return fmt.Errorf("unknown tool %q", chatTool)
		}
		a.Controller.SetActiveTool(chatTool)
	}

	if a.Controller.StartChat() {
		printLastMessage(a, out)
	} else {
		fmt.Fprintln(out, "Pick a subject and mode to begin, e.g. /subject mathematics then /mode OL.")
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := handleCommand(a, out, line); quit {
				return nil
			}
			continue
		}

		if err := sendAndPrint(ctx, a, out, line); err != nil {
			a.Logger.Debug("send error", "error", err)
		}
	}
	return scanner.Err()
}

// handleCommand dispatches a slash command. Reports whether to quit.
func handleCommand(a *app.App, out io.Writer, line string) bool {
	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "quit", "exit":
		return true

	case "subject":
		if !selectSubject(a, arg) {
			fmt.Fprintf(out, "Unknown subject %q. See 'lewa subjects'.\n", arg)
			return false
		}
		fmt.Fprintln(out, "Subject changed. Set a mode with /mode OL or /mode AL.")

	case "mode":
		mode, ok := session.ParseMode(arg)
		if !ok {
			fmt.Fprintf(out, "Invalid mode %q: want OL or AL.\n", arg)
			return false
		}
		a.Controller.SelectMode(mode)
		if a.Controller.StartChat() {
			printLastMessage(a, out)
		}

	case "tool":
		if arg == "off" || arg == "" {
			a.Controller.ClearActiveTool()
			fmt.Fprintln(out, "Augmentation disabled.")
			return false
		}
		if _, ok := catalog.ToolByID(arg); !ok {
			fmt.Fprintf(out, "Unknown tool %q. See 'lewa tools'.\n", arg)
			return false
		}
		a.Controller.SetActiveTool(arg)
		fmt.Fprintf(out, "Tool %s enabled.\n", arg)

	case "history":
		for _, msg := range a.Controller.Messages() {
			fmt.Fprintf(out, "[%s] %s\n", msg.Role, msg.Content)
		}

	default:
		fmt.Fprintf(out, "Unknown command /%s.\n", cmd)
	}
	return false
}

func selectSubject(a *app.App, id string) bool {
	subj, ok := catalog.SubjectByID(id)
	if !ok {
		return false
	}
	a.Controller.SelectSubject(subj)
	return true
}

// sendAndPrint streams the reply to out as it arrives. The apology path
// is already handled by the controller: whatever ends up as the last bot
// message is what the user should see, so on error we reprint it.
func sendAndPrint(ctx context.Context, a *app.App, out io.Writer, content string) error {
	err := a.Controller.SendMessageStream(ctx, content, func(chunk string) {
		fmt.Fprint(out, chunk)
	})
	if err != nil {
		printLastMessage(a, out)
		return err
	}
	fmt.Fprintln(out)
	return nil
}

func printLastMessage(a *app.App, out io.Writer) {
	msgs := a.Controller.Messages()
	if len(msgs) == 0 {
		return
	}
	fmt.Fprintln(out, msgs[len(msgs)-1].Content)
}
