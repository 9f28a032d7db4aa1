package command

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/big14way/afri-asset/internal/cli/connection"
	"github.com/big14way/afri-asset/internal/cli/output"
	"github.com/big14way/afri-asset/internal/core/domain"
)

// EventsCommand returns the events subcommand group.
func EventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Registry event history",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded events in sequence order",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "after", Usage: "Only events with a sequence greater than this"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of events", Value: 100},
				},
				Action: eventsList,
			},
			{
				Name:  "watch",
				Usage: "Follow new events as they are committed",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "after", Usage: "Replay events after this sequence first"},
					&cli.StringFlag{Name: "token-id", Usage: "Only events for this token"},
					&cli.StringFlag{Name: "type", Usage: "Only events of this type"},
				},
				Action: eventsWatch,
			},
		},
	}
}

func eventsList(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, ParseGlobalFlags(c).Timeout)
	defer cancel()

	query := url.Values{}
	query.Set("after", strconv.FormatUint(c.Uint64("after"), 10))
	query.Set("limit", strconv.Itoa(c.Int("limit")))

	resp, err := client.Get(ctx, "/v1/events?"+query.Encode())
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var page eventPage
	if err := connection.ParseResponse(resp, &page); err != nil {
		return err
	}

	if !isTable(c) {
		return render(c, page)
	}
	if len(page.Items) == 0 {
		fmt.Fprintln(stdout(c), "No events found.")
		return nil
	}
	if err := render(c, eventTable(page.Items)); err != nil {
		return err
	}
	fmt.Fprintf(stdout(c), "\nNext cursor: %d\n", page.Next)
	return nil
}

func eventsWatch(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	query := url.Values{}
	for flag, param := range map[string]string{"after": "after", "token-id": "token_id", "type": "type"} {
		if v := c.String(flag); v != "" {
			query.Set(param, v)
		}
	}
	path := "/v1/events/stream"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	table := isTable(c)
	if table {
		fmt.Fprintln(stdout(c), "Watching events (Ctrl+C to stop)...")
	}
	return client.Stream(ctx, path, func(frame connection.StreamEvent) error {
		var ev domain.Event
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			return fmt.Errorf("decode event %s: %w", frame.ID, err)
		}
		if table {
			t := eventTable([]domain.Event{ev})
			return (&output.TableFormatter{NoHeaders: true}).Format(stdout(c), t)
		}
		return render(c, ev)
	})
}

// eventTable lays out events with a one-line payload summary.
func eventTable(evs []domain.Event) *output.Table {
	t := &output.Table{}
	t.SetHeaders("SEQ", "TYPE", "TOKEN", "CREATED", "DETAIL")
	for _, ev := range evs {
		token := "-"
		if id, ok := ev.TokenID(); ok {
			token = id.String()
		}
		t.AddRow(
			strconv.FormatUint(ev.Seq, 10),
			string(ev.Type),
			token,
			time.UnixMilli(ev.CreatedAt).UTC().Format(time.RFC3339),
			eventDetail(ev.Payload),
		)
	}
	return t
}

func eventDetail(p domain.EventPayload) string {
	switch p := p.(type) {
	case domain.InitializedPayload:
		return "admin=" + p.Admin.String()
	case domain.RwaMintedPayload:
		return fmt.Sprintf("owner=%s metadata=%s", p.Owner, p.Metadata)
	case domain.TransferPayload:
		return fmt.Sprintf("%s -> %s", p.From, p.To)
	case domain.TradePayload:
		return fmt.Sprintf("%s -> %s escrow=%s", p.From, p.To, p.Escrow)
	case domain.BurnedPayload:
		return "owner=" + p.Owner.String()
	}
	return "-"
}
