// Command patrol is the terminal front-end of the Stadtwache duty system:
// login, SOS broadcast, duty roster, shift check-ins, vacation requests and
// shift reports against the central backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"go.uber.org/zap"

	"stadtwache/internal/api"
	"stadtwache/internal/config"
	"stadtwache/internal/logging"
	"stadtwache/internal/models"
	"stadtwache/internal/roster"
	"stadtwache/internal/session"
	"stadtwache/internal/sos"
	"stadtwache/internal/store"
)

const usage = `Usage: patrol <command> [flags]

Commands:
  login       -email -password        authenticate and store the session
  logout                              clear the stored session
  me                                  show the authenticated user
  sos                                 trigger the emergency alert flow
  status                              duty roster grouped by status
  checkin     [-status ok|help_needed|emergency]
  checkins                            list own check-ins
  vacation    -start -end -reason     request vacation
  vacations                           list vacation requests
  report      -title -content -shift-date
  reports                             list shift reports
  queue       list|flush|watch        inspect, flush or watch the offline alert queue
  register    -email -username -password [...]
  theme       dark|light              persist the theme preference

Environment: STADTWACHE_SERVER, STADTWACHE_CONFIG, STADTWACHE_DATA_DIR
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer a.log.Sync()

	if err := a.run(context.Background(), os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type app struct {
	cfgPath  string
	cfg      config.Config
	log      *zap.Logger
	client   *api.Client
	sessions *session.Manager
}

func newApp() (*app, error) {
	cfgPath := os.Getenv("STADTWACHE_CONFIG")
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	client := api.New(cfg.ServerURL,
		api.WithTimeout(time.Duration(cfg.RequestTimeoutSec)*time.Second),
		api.WithLogger(log))
	return &app{
		cfgPath:  cfgPath,
		cfg:      cfg,
		log:      log,
		client:   client,
		sessions: session.NewManager(cfg.DataDir, client, log),
	}, nil
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		if err := a.sessions.Logout(); err != nil {
			return err
		}
		fmt.Println("Abgemeldet.")
		return nil
	case "me":
		return a.cmdMe(ctx)
	case "sos":
		return a.cmdSOS(ctx)
	case "status":
		return a.cmdStatus(ctx)
	case "checkin":
		return a.cmdCheckIn(ctx, args)
	case "checkins":
		return a.cmdCheckIns(ctx)
	case "vacation":
		return a.cmdVacation(ctx, args)
	case "vacations":
		return a.cmdVacations(ctx)
	case "report":
		return a.cmdReport(ctx, args)
	case "reports":
		return a.cmdReports(ctx)
	case "queue":
		return a.cmdQueue(ctx, args)
	case "register":
		return a.cmdRegister(ctx, args)
	case "theme":
		return a.cmdTheme(args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// authenticate restores the stored session and fails the command when the
// operator is not logged in.
func (a *app) authenticate(ctx context.Context) (*session.Session, error) {
	sess, err := a.sessions.Bootstrap(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrSessionExpired) {
			return nil, errors.New("nicht angemeldet - bitte zuerst 'patrol login' ausführen")
		}
		return nil, err
	}
	return sess, nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)
	if *email == "" || *password == "" {
		return errors.New("-email und -password sind Pflichtfelder")
	}
	sess, err := a.sessions.Login(ctx, *email, *password)
	if err != nil {
		return errors.New(api.Humanize(err))
	}
	fmt.Printf("Angemeldet als %s (%s)\n", sess.User.Username, sess.User.Role)
	return nil
}

func (a *app) cmdMe(ctx context.Context) error {
	sess, err := a.authenticate(ctx)
	if err != nil {
		return err
	}
	u := sess.User
	fmt.Printf("%s <%s>\n", u.Username, u.Email)
	fmt.Printf("  Rolle:         %s\n", u.Role)
	if u.Rank != "" {
		fmt.Printf("  Dienstgrad:    %s\n", u.Rank)
	}
	if u.ServiceNumber != "" {
		fmt.Printf("  Dienstnummer:  %s\n", u.ServiceNumber)
	}
	if u.Department != "" {
		fmt.Printf("  Abteilung:     %s\n", u.Department)
	}
	fmt.Printf("  Status:        %s\n", u.Status)
	return nil
}

// cmdSOS runs the full emergency flow. It proceeds even without a valid
// session: the backend accepts unauthenticated fallback alerts, and a
// panic button must not fail on login problems.
func (a *app) cmdSOS(ctx context.Context) error {
	identity := sos.Identity{}
	if sess, err := a.sessions.Bootstrap(ctx); err == nil {
		identity = sos.Identity{ID: sess.User.ID, Name: sess.User.Username}
	} else {
		a.log.Warn("sending SOS without authenticated session", zap.Error(err))
	}

	sender := sos.NewSender(a.client, time.Duration(a.cfg.SendTimeoutSec)*time.Second)
	acquirer := sos.NewAcquirer(a.locationProvider(), time.Duration(a.cfg.LocationTimeoutSec)*time.Second)

	opts := []sos.ControllerOption{
		sos.WithIdentity(func() sos.Identity { return identity }),
		sos.WithLogger(a.log),
	}
	queue, err := store.Open(a.cfg.QueuePath(), a.log)
	if err != nil {
		// The flow still runs; it just loses durable retry.
		a.log.Warn("offline queue unavailable", zap.Error(err))
	} else {
		defer queue.Close()
		opts = append(opts, sos.WithQueue(queue))
	}

	controller := sos.NewController(acquirer, sender, sos.TerminalPresenter{Out: os.Stdout}, opts...)
	outcome, err := controller.Trigger(ctx)
	if err != nil {
		return err
	}
	if outcome.State == sos.StateCriticalFailure {
		return errors.New("SOS-Alarm konnte nicht zugestellt werden")
	}
	return nil
}

func (a *app) locationProvider() sos.Provider {
	switch a.cfg.LocationProvider {
	case config.ProviderFixed:
		return sos.FixedProvider{
			Latitude:  a.cfg.FixedLatitude,
			Longitude: a.cfg.FixedLongitude,
			Accuracy:  a.cfg.FixedAccuracy,
		}
	case config.ProviderCommand:
		return sos.CommandProvider{Command: a.cfg.LocationCommand}
	default:
		return sos.DeniedProvider{}
	}
}

func (a *app) cmdStatus(ctx context.Context) error {
	if _, err := a.authenticate(ctx); err != nil {
		return err
	}
	grouped, err := roster.New(a.client, 0).ByStatus(ctx)
	if err != nil {
		return errors.New(api.Humanize(err))
	}
	statuses := make([]string, 0, len(grouped))
	for status := range grouped {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Printf("%s:\n", status)
		for _, entry := range grouped[status] {
			online := "offline"
			if entry.IsOnline {
				online = "online"
			}
			fmt.Printf("  %-20s %-10s %s\n", entry.Username, online, entry.Rank)
		}
	}
	return nil
}

func (a *app) cmdCheckIn(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkin", flag.ExitOnError)
	status := fs.String("status", models.CheckInOK, "ok|help_needed|emergency")
	fs.Parse(args)
	if _, err := a.authenticate(ctx); err != nil {
		return err
	}
	switch *status {
	case models.CheckInOK, models.CheckInHelpNeeded, models.CheckInEmergency:
	default:
		return fmt.Errorf("unbekannter Check-In-Status %q", *status)
	}
	if _, err := a.client.CheckIn(ctx, *status); err != nil {
		return errors.New(api.Humanize(err))
	}
	fmt.Println("✅ Check-In erfolgreich. Ihr Status wurde aktualisiert.")
	return nil
}

func (a *app) cmdCheckIns(ctx context.Context) error {
	if _, err := a.authenticate(ctx); err != nil {
		return err
	}
	checkIns, err := a.client.CheckIns(ctx)
	if err != nil {
		return errors.New(api.Humanize(err))
	}
	for _, c := range checkIns {
		fmt.Printf("%s  %s\n", c.Timestamp.Local().Format("2006-01-02 15:04"), c.Status)
	}
	return nil
}

func (a *app) cmdVacation(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("vacation", flag.ExitOnError)
	start := fs.String("start", "", "start date (YYYY-MM-DD)")
	end := fs.String("end", "", "end date (YYYY-MM-DD)")
	reason := fs.String("reason", "", "reason")
	fs.Parse(args)
	if *start == "" || *end == "" || *reason == "" {
		return errors.New("-start, -end und -reason sind Pflichtfelder")
	}
	if _, err := a.authenticate(ctx); err != nil {
		return err
	}
	v := models.Vacation{StartDate: *start, EndDate: *end, Reason: *reason}
	if _, err := a.client.RequestVacation(ctx, v); err != nil {
		return errors.New(api.Humanize(err))
	}
	fmt.Println("✅ Urlaubsantrag wurde eingereicht!")
	return nil
}

func (a *app) cmdVacations(ctx context.Context) error {
	if _, err := a.authenticate(ctx); err != nil {
		return err
	}
	vacations, err := a.client.Vacations(ctx)
	if err != nil {
		return errors.New(api.Humanize(err))
	}
	for _, v := range vacations {
		fmt.Printf("%s - %s  [%s]  %s\n", v.StartDate, v.EndDate, v.Status, v.Reason)
	}
	return nil
}

func (a *app) cmdReport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	title := fs.String("title", "", "report title")
	content := fs.String("content", "", "report content")
	shiftDate := fs.String("shift-date", time.Now().Format("2006-01-02"), "shift date (YYYY-MM-DD)")
	fs.Parse(args)
	if *title == "" || *content == "" {
		return errors.New("-title und -content sind Pflichtfelder")
	}
	if _, err := a.authenticate(ctx); err != nil {
		return err
	}
	r := models.Report{Title: *title, Content: *content, ShiftDate: *shiftDate}
	created, err := a.client.CreateReport(ctx, r)
	if err != nil {
		return errors.New(api.Humanize(err))
	}
	fmt.Printf("Bericht angelegt: %s\n", created.ID)
	return nil
}

func (a *app) cmdReports(ctx context.Context) error {
	if _, err := a.authenticate(ctx); err != nil {
		return err
	}
	reports, err := a.client.Reports(ctx)
	if err != nil {
		return errors.New(api.Humanize(err))
	}
	for _, r := range reports {
		fmt.Printf("%s  [%s]  %s (%s)\n", r.ShiftDate, r.Status, r.Title, r.AuthorName)
	}
	return nil
}

func (a *app) cmdQueue(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}
	queue, err := store.Open(a.cfg.QueuePath(), a.log)
	if err != nil {
		return err
	}
	defer queue.Close()

	switch sub {
	case "list":
		entries, err := queue.Pending(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Keine ausstehenden Alarme.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %s  Versuche: %d  %s\n",
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Kind, e.Attempts, e.LastError)
		}
		return nil
	case "flush":
		sender := sos.NewSender(a.client, time.Duration(a.cfg.SendTimeoutSec)*time.Second)
		delivered, err := queue.Flush(ctx, sender)
		fmt.Printf("%d Alarm(e) zugestellt.\n", delivered)
		if err != nil {
			return errors.New(api.Humanize(err))
		}
		return nil
	case "watch":
		sender := sos.NewSender(a.client, time.Duration(a.cfg.SendTimeoutSec)*time.Second)
		flusher, err := store.NewFlusher(queue, sender, a.cfg.QueueFlushSchedule, a.log)
		if err != nil {
			return err
		}
		flusher.Start()
		fmt.Println("Überwache die Alarm-Warteschlange. Strg+C zum Beenden.")
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		flusher.Stop()
		return nil
	default:
		return fmt.Errorf("unknown queue subcommand %q", sub)
	}
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	req := api.RegisterRequest{}
	fs.StringVar(&req.Email, "email", "", "email")
	fs.StringVar(&req.Username, "username", "", "username")
	fs.StringVar(&req.Password, "password", "", "password")
	fs.StringVar(&req.Role, "role", models.RolePolice, "admin|police|community|trainee")
	fs.StringVar(&req.BadgeNumber, "badge", "", "badge number")
	fs.StringVar(&req.Department, "department", "", "department")
	fs.StringVar(&req.Phone, "phone", "", "phone")
	fs.StringVar(&req.ServiceNumber, "service-number", "", "service number")
	fs.StringVar(&req.Rank, "rank", "", "rank")
	fs.Parse(args)
	if req.Email == "" || req.Username == "" || req.Password == "" {
		return errors.New("-email, -username und -password sind Pflichtfelder")
	}
	if _, err := a.authenticate(ctx); err != nil {
		return err
	}
	user, err := a.client.Register(ctx, req)
	if err != nil {
		return errors.New(api.Humanize(err))
	}
	fmt.Printf("Benutzer angelegt: %s (%s)\n", user.Username, user.ID)
	return nil
}

func (a *app) cmdTheme(args []string) error {
	if len(args) != 1 || (args[0] != "dark" && args[0] != "light") {
		return errors.New("usage: patrol theme dark|light")
	}
	a.cfg.Theme = args[0]
	if err := a.cfg.Save(a.cfgPath); err != nil {
		return err
	}
	fmt.Printf("Theme: %s\n", a.cfg.Theme)
	return nil
}
