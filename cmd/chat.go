package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrgbiryu-cyber/maestro/pkg/chat"
	"github.com/mrgbiryu-cyber/maestro/pkg/config"
	"github.com/mrgbiryu-cyber/maestro/pkg/logger"
	"github.com/mrgbiryu-cyber/maestro/pkg/orchestrator"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive conversation with the master agent",
	Long: `Opens an interactive conversation in the active project context.
Responses stream in as they are generated. When the agent signals a
complete task plan, confirm with /start to launch the workflow and
follow its live logs.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	settings := config.Get()

	projectID := settings.Project.ID
	if projectID == "" {
		projectID = "system-master"
	}
	threadID := settings.Project.Thread

	streamer := chat.NewStreamingClient(settings.Server.URL, settings.Server.Token)
	restClient := chat.NewClient(settings.Server.URL, settings.Server.Token)
	orch := orchestrator.NewClient(settings.Server.URL, settings.Server.Token)

	history, err := chat.NewHistory(settings.Chat.HistoryDir, projectID, threadID)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	ctx := cmd.Context()

	// Prefer the backend's transcript when reachable; the local file is
	// the fallback for offline reloads.
	if remote, err := restClient.ChatHistory(ctx, projectID, threadID, 50); err == nil && len(remote) > 0 {
		if err := history.Replace(remote); err != nil {
			logger.Warn("failed to sync remote history: %v", err)
		}
	}

	conv := chat.NewConversation(streamer, history, chat.ConversationOptions{
		ProjectID:       projectID,
		ThreadID:        threadID,
		ModeRevertAfter: settings.Chat.ModeRevertAfter,
	})
	defer conv.Close()

	conv.Restore()

	fmt.Printf("Context: %s", projectID)
	if threadID != "" {
		fmt.Printf(" (thread %s)", threadID)
	}
	fmt.Println()
	printStatus(conv)
	fmt.Println("Type a message, /start to confirm a pending plan, /quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/start":
			startTask(ctx, conv, orch, projectID)
			continue
		case "/status":
			printStatus(conv)
			continue
		}

		if err := sendAndWait(ctx, conv, line); err != nil {
			fmt.Println(errorStyle.Render("Error: " + err.Error()))
		}
		printStatus(conv)
	}
}

// sendAndWait streams one exchange to completion, printing display text
// as it grows.
func sendAndWait(ctx context.Context, conv *chat.Conversation, text string) error {
	done := make(chan struct{})
	var lastSnapshot string

	handler := chat.HandlerFunc{
		DisplayFunc: func(snapshot string) {
			// Print only the newly revealed suffix while the snapshot
			// grows by appending; a signal elision rewrites the line.
			if strings.HasPrefix(snapshot, lastSnapshot) {
				fmt.Print(snapshot[len(lastSnapshot):])
			} else {
				fmt.Print("\r\033[2K")
				fmt.Print(snapshot)
			}
			lastSnapshot = snapshot
		},
		SignalFunc: func(sig chat.Signal) {
			switch s := sig.(type) {
			case chat.ReadyToStart:
				fmt.Println()
				fmt.Println(gateStyle.Render("Plan ready: ") + summaryStyle.Render(s.FinalSummary))
			case chat.ModeSwitch:
				fmt.Println()
				fmt.Println(modeBadgeStyle.Render(string(s.Mode)) + " " + s.Reason)
			}
		},
		CompleteFunc: func(final string) {
			fmt.Print("\r\033[2K")
			fmt.Println(renderContent(final))
			close(done)
		},
		ErrorFunc: func(err error) {
			fmt.Println()
			fmt.Println(errorStyle.Render("Error: " + err.Error()))
			close(done)
		},
	}

	fmt.Println(userStyle.Render("you: ") + text)
	if _, err := conv.Send(ctx, text, handler); err != nil {
		return err
	}

	<-done
	return nil
}

// startTask confirms a pending go-ahead: it launches the workflow and
// follows execution logs until a terminal event clears the gate.
func startTask(ctx context.Context, conv *chat.Conversation, orch *orchestrator.Client, projectID string) {
	gate := conv.Gate()
	summary := gate.Summary()

	if err := gate.Start(); err != nil {
		fmt.Println(errorStyle.Render("No pending plan to start."))
		return
	}

	exec, err := orch.StartWorkflow(ctx, projectID)
	if err != nil {
		// Launch failed; the go-ahead is still valid.
		gate.Arm(summary)
		fmt.Println(errorStyle.Render("Workflow start failed: " + err.Error()))
		return
	}

	fmt.Println(gateStyle.Render("Workflow started: ") + exec.ExecutionID)

	events, err := orch.FollowLogs(ctx, exec.ExecutionID)
	if err != nil {
		gate.Clear()
		fmt.Println(errorStyle.Render("Log stream unavailable: " + err.Error()))
		return
	}

	for ev := range events {
		line := ev.Message
		if ev.Level != "" {
			line = "[" + ev.Level + "] " + line
		}
		fmt.Println(logStyle.Render(line))
		if ev.Terminal() {
			fmt.Println(gateStyle.Render("Workflow " + string(ev.Status)))
		}
	}

	// Finished, failed, or stream dropped: the gate clears either way.
	gate.Clear()
}

func printStatus(conv *chat.Conversation) {
	status := modeBadgeStyle.Render(string(conv.Mode()))
	if conv.Gate().State() == chat.GateReady {
		status += " " + gateStyle.Render("READY") + " " + summaryStyle.Render(conv.Gate().Summary())
	}
	fmt.Println(status)
}
