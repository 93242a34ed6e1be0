package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/knw/internal/chat"
	"github.com/cory-johannsen/knw/internal/document"
	"github.com/cory-johannsen/knw/internal/frontend/telnet"
	"github.com/cory-johannsen/knw/internal/game/actor"
	"github.com/cory-johannsen/knw/internal/game/command"
	"github.com/cory-johannsen/knw/internal/game/organization"
	"github.com/cory-johannsen/knw/internal/game/ruleset"
	"github.com/cory-johannsen/knw/internal/game/session"
	"github.com/cory-johannsen/knw/internal/game/warfare"
	"github.com/cory-johannsen/knw/internal/i18n"
	"github.com/cory-johannsen/knw/internal/sheet"
	"github.com/cory-johannsen/knw/internal/storage/postgres"
)

// DefaultCharacterProficiency is the proficiency bonus of characters created
// with the create command.
const DefaultCharacterProficiency = 2

// HistoryLength is the number of recent chat messages shown after login.
const HistoryLength = 10

// History reads back persisted chat messages, oldest first.
type History interface {
	Recent(ctx context.Context, limit int) ([]chat.Message, error)
}

// Services are the collaborators of a logged-in session. History is optional.
type Services struct {
	Sessions      *session.Manager
	Store         document.Store
	Sheets        *sheet.Dispatcher
	OrgSheet      *sheet.OrganizationSheet
	WarSheet      *sheet.WarfareSheet
	Organizations *organization.Service
	Warfare       *warfare.Service
	Chat          chat.Messenger
	History       History
	Locale        i18n.Localizer
	Commands      *command.Registry
}

// recordTypes maps the short type names accepted by list and create.
var recordTypes = map[string]string{
	"organization": ruleset.TypeOrganization,
	"org":          ruleset.TypeOrganization,
	"warfare":      ruleset.TypeWarfare,
	"unit":         ruleset.TypeWarfare,
	"character":    actor.TypeCharacter,
	"pc":           actor.TypeCharacter,
}

// playSession is the state of one logged-in connection.
type playSession struct {
	h       *AuthHandler
	conn    *telnet.Conn
	acct    postgres.Account
	user    actor.User
	chooser promptChooser
	logger  *zap.Logger

	// viewing is the id of the open record; viewingName labels the prompt.
	viewing     string
	viewingName string
}

// play registers the user, forwards their outbox to the connection, and
// runs the command loop until quit or disconnect.
func (h *AuthHandler) play(ctx context.Context, conn *telnet.Conn, acct postgres.Account) error {
	u := acct.User()
	sess, err := h.svc.Sessions.AddUser(u, acct.Username, acct.Role)
	if err != nil {
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "You are already connected from another session."))
		return nil
	}
	defer func() { _ = h.svc.Sessions.RemoveUser(u.ID) }()

	ps := &playSession{
		h:       h,
		conn:    conn,
		acct:    acct,
		user:    u,
		chooser: promptChooser{conn: conn},
		logger:  h.logger.With(zap.String("user", u.ID), zap.String("username", acct.Username)),
	}

	ps.showHistory(ctx)

	loopCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ps.forward(loopCtx, sess.Outbox)
	}()

	err = ps.loop(loopCtx)
	cancel()
	wg.Wait()
	return err
}

// forward writes outbox lines to the connection until the outbox closes or ctx ends.
func (ps *playSession) forward(ctx context.Context, out *session.Outbox) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-out.Lines():
			if !ok {
				return
			}
			if err := ps.conn.Notify(line); err != nil {
				ps.logger.Debug("outbox write failed", zap.Error(err))
				return
			}
		}
	}
}

// showHistory writes the most recent chat messages. Failures are logged only.
func (ps *playSession) showHistory(ctx context.Context) {
	if ps.h.svc.History == nil {
		return
	}
	msgs, err := ps.h.svc.History.Recent(ctx, HistoryLength)
	if err != nil {
		ps.logger.Warn("loading chat history", zap.Error(err))
		return
	}
	if len(msgs) == 0 {
		return
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, telnet.Colorf(telnet.Dim, "%s %s", m.CreatedAt.Format("15:04"), m.Text()))
	}
	_ = ps.conn.WriteLines(lines)
}

func (ps *playSession) prompt() string {
	if ps.viewingName != "" {
		return telnet.Colorf(telnet.BrightCyan, "[%s:%s]> ", ps.acct.Username, ps.viewingName)
	}
	return telnet.Colorf(telnet.BrightCyan, "[%s]> ", ps.acct.Username)
}

// loop reads and executes commands.
//
// Postcondition: Returns nil on quit, ctx.Err() on cancellation, or a wrapped read error.
func (ps *playSession) loop(ctx context.Context) error {
	registry := ps.h.svc.Commands
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := ps.prompt()
		ps.conn.SetPrompt(p)
		if err := ps.conn.WritePrompt(p); err != nil {
			return fmt.Errorf("writing prompt: %w", err)
		}
		line, err := ps.conn.ReadLine()
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		parsed := command.Parse(line)
		if parsed.Command == "" {
			continue
		}
		cmd, ok := registry.Resolve(parsed.Command)
		if !ok {
			_ = ps.conn.WriteLine(telnet.Colorf(telnet.Red, "Unknown command: %s. Type 'help' for available commands.", parsed.Command))
			continue
		}
		args, err := command.Bind(cmd.Params, parsed.Args)
		if err != nil {
			_ = ps.conn.WriteLine(telnet.Colorf(telnet.Red, "Usage: %s (%v)", cmd.Usage(), err))
			continue
		}

		quit, err := ps.execute(ctx, cmd, args, parsed.RawArgs)
		if err != nil {
			ps.logger.Error("command failed", zap.String("command", cmd.Name), zap.Error(err))
			_ = ps.conn.WriteLine(telnet.Colorize(telnet.Red, "An internal error occurred. Please try again."))
			continue
		}
		if quit {
			return nil
		}
	}
}

// execute runs one resolved command.
//
// Postcondition: Returns quit=true when the session should end.
func (ps *playSession) execute(ctx context.Context, cmd *command.Command, args map[string]string, raw string) (bool, error) {
	svc := ps.h.svc
	switch cmd.Handler {
	case command.HandlerAction:
		return false, ps.invoke(ctx, cmd.Name, args)

	case command.HandlerList:
		docType := args["type"]
		if t, ok := recordTypes[strings.ToLower(docType)]; ok {
			docType = t
		}
		docs, err := svc.Store.List(ctx, docType)
		if err != nil {
			return false, err
		}
		return false, ps.conn.Write([]byte(RenderRecordList(docs, svc.Locale)))

	case command.HandlerOpen:
		id := args["id"]
		if id == "" {
			return false, ps.conn.WriteLine(telnet.Colorize(telnet.Red, "Usage: "+cmd.Usage()))
		}
		return false, ps.open(ctx, id)

	case command.HandlerClose:
		if _, err := svc.Sessions.View(ps.user.ID, ""); err != nil {
			return false, err
		}
		ps.viewing, ps.viewingName = "", ""
		return false, ps.conn.WriteLine("Sheet closed.")

	case command.HandlerLook:
		if ps.viewing == "" {
			return false, ps.conn.WriteLine("No sheet is open. Use 'open <id>'.")
		}
		return false, ps.open(ctx, ps.viewing)

	case command.HandlerDev:
		if ps.viewing == "" {
			return false, ps.conn.WriteLine("No sheet is open. Use 'open <id>'.")
		}
		group := args["group"]
		if group == "" {
			group = ruleset.GroupSkills
		}
		v, err := svc.OrgSheet.DevelopmentView(ctx, ps.viewing, group)
		if err != nil {
			return false, ps.notice(err)
		}
		return false, ps.conn.Write([]byte(RenderDevEditor(v, svc.Locale)))

	case command.HandlerBars:
		return false, ps.conn.Write([]byte(RenderTokenBars(svc.WarSheet.TokenBars())))

	case command.HandlerCreate:
		return false, ps.create(ctx, cmd, args)

	case command.HandlerSay:
		if raw == "" {
			return false, ps.conn.WriteLine(telnet.Colorize(telnet.Red, "Say what?"))
		}
		_, err := svc.Chat.Post(ctx, chat.Message{
			SpeakerID:   ps.user.ID,
			SpeakerName: ps.acct.Username,
			AuthorID:    ps.user.ID,
			Content:     raw,
		})
		return false, err

	case command.HandlerWho:
		lines := []string{telnet.Colorf(telnet.BrightWhite, "%d connected:", svc.Sessions.UserCount())}
		for _, s := range svc.Sessions.Users() {
			line := fmt.Sprintf("  %s %s", telnet.PadRight(s.Username, 20), telnet.Colorf(telnet.Dim, "(%s)", s.Role))
			if s.Viewing != "" {
				line += " viewing " + key(s.Viewing)
			}
			lines = append(lines, line)
		}
		return false, ps.conn.WriteLines(lines)

	case command.HandlerQuit:
		_ = ps.conn.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye!"))
		return true, nil

	case command.HandlerHelp:
		return false, ps.conn.Write([]byte(RenderHelp(svc.Commands)))

	case command.HandlerSetRole:
		return false, ps.setRole(ctx, args)

	case command.HandlerPasswd:
		return false, ps.changePassword(ctx)
	}
	return false, fmt.Errorf("no handler for %q", cmd.Handler)
}

// notice shows a policy notice inline; other errors are returned.
func (ps *playSession) notice(err error) error {
	var n *chat.Notice
	if errors.As(err, &n) {
		return ps.conn.WriteLine(telnet.Colorize(telnet.Yellow, ps.h.svc.Locale.Format(n.Key, n.Args)))
	}
	return err
}

// open renders recordID and records it as the viewed sheet.
func (ps *playSession) open(ctx context.Context, recordID string) error {
	svc := ps.h.svc
	view, err := svc.Sheets.View(ctx, ps.user, recordID)
	if err != nil {
		var n *chat.Notice
		if errors.As(err, &n) {
			// The dispatcher already notified the user.
			return nil
		}
		return err
	}
	if _, err := svc.Sessions.View(ps.user.ID, recordID); err != nil {
		return err
	}
	ps.viewing, ps.viewingName = recordID, viewName(view)
	return ps.conn.Write([]byte(RenderView(view, svc.Locale)))
}

func viewName(view any) string {
	switch v := view.(type) {
	case *sheet.OrganizationView:
		return v.Name
	case *sheet.WarfareView:
		return v.Name
	}
	return ""
}

// invoke runs a sheet action on the open record and refreshes its viewers
// when the record changed.
func (ps *playSession) invoke(ctx context.Context, action string, args map[string]string) error {
	if ps.viewing == "" {
		return ps.conn.WriteLine("No sheet is open. Use 'open <id>'.")
	}
	svc := ps.h.svc
	res, err := svc.Sheets.Invoke(ctx, ps.user, ps.viewing, action, sheet.Payload(args), ps.chooser)
	if err != nil || res.Rejected {
		return err
	}

	switch action {
	case sheet.ActionCreateEffect:
		_ = ps.conn.WriteLine("Effect created " + key(res.Value))
	case sheet.ActionToggleStatus:
		state := "off"
		if on, _ := strconv.ParseBool(res.Value); on {
			state = "on"
		}
		_ = ps.conn.WriteLine(fmt.Sprintf("Status %s is now %s.", args["status"], state))
	}
	if res.Changed {
		ps.refresh(ctx, ps.viewing)
	}
	return nil
}

// refresh re-renders recordID for everyone viewing it.
func (ps *playSession) refresh(ctx context.Context, recordID string) {
	svc := ps.h.svc
	for _, uid := range svc.Sessions.Viewers(recordID) {
		sess, ok := svc.Sessions.GetUser(uid)
		if !ok {
			continue
		}
		view, err := svc.Sheets.View(ctx, sess.User, recordID)
		if err != nil {
			ps.logger.Warn("refreshing sheet", zap.String("viewer", uid), zap.String("record", recordID), zap.Error(err))
			continue
		}
		if err := svc.Sessions.SendTo(uid, strings.TrimRight(RenderView(view, svc.Locale), "\r\n")); err != nil {
			ps.logger.Warn("sheet refresh dropped", zap.String("viewer", uid), zap.Error(err))
		}
	}
}

// create stores a new organization, warfare unit, or character owned by the user.
func (ps *playSession) create(ctx context.Context, cmd *command.Command, args map[string]string) error {
	docType, ok := recordTypes[strings.ToLower(args["type"])]
	name := strings.TrimSpace(args["name"])
	if !ok || name == "" {
		return ps.conn.WriteLine(telnet.Colorize(telnet.Red, "Usage: "+cmd.Usage()+" (type is organization, warfare, or character)"))
	}

	svc := ps.h.svc
	var id string
	switch docType {
	case ruleset.TypeOrganization:
		rec, err := svc.Organizations.Create(ctx, ps.user, name)
		if err != nil {
			return err
		}
		id = rec.Doc.ID
	case ruleset.TypeWarfare:
		rec, err := svc.Warfare.Create(ctx, ps.user, name)
		if err != nil {
			return err
		}
		id = rec.Doc.ID
	default:
		d, err := actor.NewCharacterDocument(name, DefaultCharacterProficiency, ps.user.ID)
		if err != nil {
			return err
		}
		created, err := svc.Store.Create(ctx, d)
		if err != nil {
			return err
		}
		id = created.ID
	}
	ps.logger.Info("record created", zap.String("type", docType), zap.String("id", id))
	return ps.conn.WriteLine(telnet.Colorf(telnet.BrightGreen, "Created %s ", name) + key(id))
}

// setRole changes another account's role. Only admins may use it.
func (ps *playSession) setRole(ctx context.Context, args map[string]string) error {
	if ps.acct.Role != postgres.RoleAdmin {
		return ps.conn.WriteLine(telnet.Colorize(telnet.Red, "Permission denied."))
	}
	username, role := args["username"], strings.ToLower(args["role"])
	if username == "" || !postgres.ValidRole(role) {
		return ps.conn.WriteLine(telnet.Colorize(telnet.Red, "Usage: setrole <username> <player|gm|admin>"))
	}
	target, err := ps.h.accounts.GetByUsername(ctx, username)
	if errors.Is(err, postgres.ErrAccountNotFound) {
		return ps.conn.WriteLine(telnet.Colorf(telnet.Red, "No account %s.", username))
	}
	if err != nil {
		return err
	}
	if err := ps.h.accounts.SetRole(ctx, target.ID, role); err != nil {
		return err
	}
	ps.logger.Info("role changed", zap.String("target", username), zap.String("role", role))
	return ps.conn.WriteLine(telnet.Colorf(telnet.BrightGreen, "%s is now %s; it applies from their next login.", username, role))
}

// changePassword prompts for the current and new password without echo.
func (ps *playSession) changePassword(ctx context.Context) error {
	var answers [2]string
	for i, prompt := range []string{"Current password: ", "New password: "} {
		if err := ps.conn.WritePrompt(prompt); err != nil {
			return err
		}
		p, err := ps.conn.ReadPassword()
		if err != nil {
			return err
		}
		answers[i] = p
	}
	if answers[1] == "" {
		return ps.conn.WriteLine(telnet.Colorize(telnet.Red, "Password unchanged."))
	}
	err := ps.h.accounts.ChangePassword(ctx, ps.acct.Username, answers[0], answers[1])
	if errors.Is(err, postgres.ErrInvalidCredentials) {
		return ps.conn.WriteLine(telnet.Colorize(telnet.Red, "Incorrect password."))
	}
	if err != nil {
		return err
	}
	ps.logger.Info("password changed")
	return ps.conn.WriteLine(telnet.Colorize(telnet.BrightGreen, "Password changed."))
}
