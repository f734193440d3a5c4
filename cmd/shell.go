package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mateusmacedo/go-busbooking/internal/booking/application"
	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
)

const usage = `commands:
  register <user> <password> <email>
  login <user> <password>
  logout
  routes
  schedules <route>
  seats <route> <yyyy-mm-dd> <hh:mm>
  toggle <seat>
  back
  reserve
  pay <security code>
  history
  help
  quit`

// shell is the line-oriented driver of one booking session.
type shell struct {
	in      io.Reader
	mu      sync.Mutex
	out     io.Writer
	session *application.Session
}

func newShell(in io.Reader, out io.Writer) *shell {
	return &shell{in: in, out: out}
}

func (s *shell) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

func (s *shell) renderNotice(_ context.Context, n domain.Notice) {
	s.printf("[%s] %s\n", n.Level, n.Message)
}

func (s *shell) toEntry() {
	s.printf("back to sign in\n")
}

func (s *shell) run(ctx context.Context) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	s.printf("%s\n> ", usage)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := s.execute(ctx, strings.Fields(line)); quit {
				return
			}
			s.printf("> ")
		}
	}
}

// execute runs one command. Errors were already rendered as notices.
func (s *shell) execute(ctx context.Context, args []string) bool {
	if len(args) == 0 {
		return false
	}
	ctx = pkgApp.WithRequestID(ctx, uuid.NewString())

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "quit", "exit":
		return true
	case "help":
		s.printf("%s\n", usage)
	case "register":
		if len(rest) != 3 {
			s.printf("usage: register <user> <password> <email>\n")
			return false
		}
		err = s.session.Register(ctx, rest[0], rest[1], rest[2])
	case "login":
		if len(rest) != 2 {
			s.printf("usage: login <user> <password>\n")
			return false
		}
		err = s.session.Login(ctx, rest[0], rest[1])
	case "logout":
		err = s.session.Logout(ctx)
	case "routes":
		var routes []domain.Route
		if routes, err = s.session.LoadRoutes(ctx); err == nil {
			for _, r := range routes {
				s.printf("  %d  %s -> %s\n", r.ID, r.Origin, r.Destination)
			}
		}
	case "schedules":
		if len(rest) != 1 {
			s.printf("usage: schedules <route>\n")
			return false
		}
		var schedules []string
		if schedules, err = s.session.SelectRoute(ctx, rest[0]); err == nil {
			s.printf("  %s\n", strings.Join(schedules, "  "))
		}
	case "seats":
		if len(rest) != 3 {
			s.printf("usage: seats <route> <yyyy-mm-dd> <hh:mm>\n")
			return false
		}
		criteria := domain.Criteria{RouteID: rest[0], Date: rest[1], Schedule: rest[2]}
		if err = s.session.CheckAvailability(ctx, criteria); err == nil {
			s.renderSeats()
		}
	case "toggle":
		seat, convErr := strconv.Atoi(strings.Join(rest, ""))
		if convErr != nil {
			s.printf("usage: toggle <seat>\n")
			return false
		}
		s.session.ToggleSeat(ctx, seat)
		s.renderSeats()
	case "back":
		s.session.LeaveSeatView()
	case "reserve":
		var receipt domain.Receipt
		if receipt, err = s.session.Reserve(ctx); err == nil {
			s.printf("reserved seats %v, total %d. enter the card security code: pay <code>\n", receipt.Seats, receipt.Amount)
		}
	case "pay":
		if len(rest) != 1 {
			s.printf("usage: pay <security code>\n")
			return false
		}
		err = s.session.ConfirmPayment(ctx, rest[0])
	case "history":
		var receipts []domain.Receipt
		if receipts, err = s.session.Reservations(ctx); err == nil {
			for _, r := range receipts {
				s.printf("  %s  route %s %s %s seats %v  %d  %s\n", r.ID, r.RouteID, r.Date, r.Schedule, r.Seats, r.Amount, r.Status)
			}
		}
	default:
		s.printf("unknown command %q, try help\n", cmd)
	}

	switch {
	case errors.Is(err, domain.ErrOutOfOrder):
		s.printf("not available on the %s step\n", s.session.View().Step)
	case errors.Is(err, domain.ErrBusy):
		s.printf("still working on the previous request\n")
	}
	return false
}

func (s *shell) renderSeats() {
	view := s.session.View()
	if view.MapUnavailable {
		s.printf("seat map unavailable\n")
		return
	}
	if view.Seats == nil {
		return
	}

	var b strings.Builder
	for i, seat := range view.Seats {
		mark := "  "
		switch seat.Status {
		case domain.SeatReserved:
			mark = " x"
		case domain.SeatSelected:
			mark = " *"
		}
		fmt.Fprintf(&b, "%3d%s", seat.Number, mark)
		if (i+1)%4 == 0 {
			b.WriteString("\n")
		}
	}
	s.printf("%sselected %v  %s  total %d\n", b.String(), view.Selected, view.Selection, view.Price)
}
