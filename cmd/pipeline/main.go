// Comando pipeline: ingesta diaria desde SIESA y aplicación de notas crédito.
//
//	pipeline run   [-date YYYY-MM-DD] [-export] [-report] [-email]
//	pipeline range -from YYYY-MM-DD -to YYYY-MM-DD [-export] [-report] [-email]
//	pipeline token -user <id> -role <admin|analista|auditor>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/cipa-correagro/notas-credito/internal/application/creditnote"
	"github.com/cipa-correagro/notas-credito/internal/application/pipeline"
	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
	"github.com/cipa-correagro/notas-credito/internal/domain/rules"
	"github.com/cipa-correagro/notas-credito/internal/infrastructure/export"
	"github.com/cipa-correagro/notas-credito/internal/infrastructure/mail"
	"github.com/cipa-correagro/notas-credito/internal/infrastructure/pdf"
	"github.com/cipa-correagro/notas-credito/internal/infrastructure/siesa"
	"github.com/cipa-correagro/notas-credito/internal/infrastructure/sqlstore"
	"github.com/cipa-correagro/notas-credito/pkg/config"
	"github.com/cipa-correagro/notas-credito/pkg/jwt"
	"github.com/cipa-correagro/notas-credito/pkg/logger"
)

const dateLayout = "2006-01-02"

func usage() int {
	fmt.Fprintln(os.Stderr, "uso: pipeline run|range|token [flags]")
	return 2
}

// outputs artefactos opcionales de cada día.
type outputs struct {
	export, report, email bool
}

func (o *outputs) bind(fs *flag.FlagSet) {
	fs.BoolVar(&o.export, "export", false, "escribir la planilla XLSX en OUTPUT_DIR")
	fs.BoolVar(&o.report, "report", false, "escribir el resumen PDF en OUTPUT_DIR")
	fs.BoolVar(&o.email, "email", false, "enviar la planilla a DESTINATARIOS")
}

func main() {
	os.Exit(run())
}

// run devuelve el código de salida; los defer (señales, almacén) corren antes de os.Exit.
func run() int {
	if len(os.Args) < 2 {
		return usage()
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cargar configuración:", err)
		return 1
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "token":
		return runToken(cfg, args)
	case "run", "range":
	default:
		return usage()
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	var out outputs
	out.bind(fs)
	yesterday := time.Now().AddDate(0, 0, -1).Format(dateLayout)
	date := fs.String("date", yesterday, "fecha a procesar (run)")
	from := fs.String("from", "", "inicio del rango (range)")
	to := fs.String("to", "", "fin del rango (range)")
	_ = fs.Parse(args)

	if err := cfg.ValidatePipeline(); err != nil {
		log.Error().Err(err).Msg("configuración inválida")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlstore.Open(ctx, cfg.Store)
	if err != nil {
		log.Error().Err(err).Msg("abrir almacén")
		return 1
	}
	defer db.Close()

	tx := sqlstore.NewTxRunner(db)
	notes := sqlstore.NewCreditNoteRepository(db)
	applicator := creditnote.NewApplicator(notes, tx, log,
		creditnote.WithEpsilon(cfg.Rules.ApplicationEpsilon))
	svc := pipeline.NewService(
		siesa.NewClient(cfg.ERP, log),
		tx,
		notes,
		rules.NewFilter(cfg.Rules.MinInvoiceTotal),
		applicator,
		log,
		pipeline.WithRunRepository(sqlstore.NewIngestionRunRepository(db)),
	)
	w := &writer{cfg: cfg, log: log, out: out, report: pdf.NewReportGenerator("")}
	if out.email {
		w.mail = mail.NewSender(cfg.Mail, log)
	}

	var results []*pipeline.DayResult
	var runErr error
	if cmd == "run" {
		d, err := time.Parse(dateLayout, *date)
		if err != nil {
			log.Error().Err(err).Str("date", *date).Msg("fecha inválida")
			return 2
		}
		res, err := svc.RunDay(ctx, d)
		results, runErr = []*pipeline.DayResult{res}, err
	} else {
		f, errFrom := time.Parse(dateLayout, *from)
		t, errTo := time.Parse(dateLayout, *to)
		if errFrom != nil || errTo != nil {
			log.Error().Str("from", *from).Str("to", *to).Msg("range requiere -from y -to en YYYY-MM-DD")
			return 2
		}
		results, runErr = svc.RunRange(ctx, f, t)
	}

	for _, res := range results {
		if res != nil && res.Run != nil && res.Run.Status != entity.RunFailure {
			w.write(ctx, res)
		}
	}
	if runErr != nil {
		log.Error().Err(runErr).Msg("pipeline terminó con error")
		return 1
	}
	return 0
}

// writer escribe planilla, resumen y correo de un día procesado.
type writer struct {
	cfg    *config.Config
	log    *logger.Logger
	out    outputs
	report *pdf.ReportGenerator
	mail   *mail.Sender
}

func (w *writer) write(ctx context.Context, res *pipeline.DayResult) {
	day := res.Date.Format(dateLayout)
	var attachments []string
	if w.out.export || w.out.email {
		path, err := export.WriteFile(w.cfg.App.OutputDir, res.Date, res.Accepted)
		switch {
		case errors.Is(err, export.ErrNoLines):
			w.log.Info().Str("date", day).Msg("sin líneas aceptadas; no se genera planilla")
		case err != nil:
			w.log.Error().Err(err).Str("date", day).Msg("no se pudo escribir la planilla")
		default:
			attachments = append(attachments, path)
			w.log.Info().Str("date", day).Str("path", path).Msg("planilla generada")
		}
	}
	if w.out.report {
		path, err := w.report.WriteFile(ctx, w.cfg.App.OutputDir, res)
		if err != nil {
			w.log.Error().Err(err).Str("date", day).Msg("no se pudo escribir el resumen PDF")
		} else {
			w.log.Info().Str("date", day).Str("path", path).Msg("resumen generado")
		}
	}
	if w.mail == nil || len(attachments) == 0 {
		return
	}
	if err := w.mail.Send(ctx, res.Date, attachments...); err != nil {
		w.log.Error().Err(err).Str("date", day).Msg("no se pudo enviar el correo")
	}
}

func runToken(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	user := fs.String("user", "", "identificador del usuario")
	role := fs.String("role", jwt.RoleAnalyst, "admin, analista o auditor")
	_ = fs.Parse(args)

	if err := cfg.ValidateAPI(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	switch *role {
	case jwt.RoleAdmin, jwt.RoleAnalyst, jwt.RoleAuditor:
	default:
		fmt.Fprintf(os.Stderr, "rol desconocido %q\n", *role)
		return 2
	}
	if *user == "" {
		fmt.Fprintln(os.Stderr, "-user es obligatorio")
		return 2
	}
	tok, err := jwt.Generate(cfg.JWT.Secret, *user, fmt.Sprint(cfg.ERP.CompanyID), *role, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(tok)
	return 0
}
