package main

import (
	"log"
	"os"

	echoapi "github.com/smancaringin/presensi/api/echo"
	"github.com/smancaringin/presensi/core"
	"github.com/smancaringin/presensi/core/attendance"
	"github.com/smancaringin/presensi/core/user"
	emailsvc "github.com/smancaringin/presensi/services/email"
	geminisvc "github.com/smancaringin/presensi/services/gemini"
	dummygemini "github.com/smancaringin/presensi/services/gemini/dummy"
	logsvc "github.com/smancaringin/presensi/services/logger"
	spreadsheetsvc "github.com/smancaringin/presensi/services/spreadsheet"
	"github.com/smancaringin/presensi/storage/database"
	inmemdb "github.com/smancaringin/presensi/storage/database/inmem"
	sqlxrepos "github.com/smancaringin/presensi/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		std.Fatal(err)
	}

	var logger core.Logger
	if conf.RollbarToken != "" {
		logger = logsvc.NewRollbarLogger(std, conf)
		logger.Enable(!conf.Debug)
	} else {
		logger = logsvc.NewStdLogger(std)
	}

	// attendance log: Postgres when configured, in-memory otherwise (the
	// spreadsheet stays the durable store either way)
	var repo attendance.Repository
	if conf.Database.Enabled {
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal(err.Error(), err)
		}
		defer db.Close()
		if err := database.Migrate(db); err != nil {
			logger.Fatal(err.Error(), err)
		}
		repo = sqlxrepos.NewRecordRepository(db, conf.Location())
	} else {
		repo = inmemdb.NewRecordRepository(inmemdb.NewDB(), conf.Location())
	}

	var classifier attendance.Classifier
	if conf.Gemini.APIKey != "" {
		classifier = geminisvc.NewService(conf, logger)
	} else {
		cutoff, err := attendance.ParseCutoff(conf.LatenessCutoff)
		if err != nil {
			cutoff = attendance.DefaultCutoff
		}
		classifier = dummygemini.NewService(cutoff, conf.Location())
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	syncer := spreadsheetsvc.NewService(conf, logger)
	attSvc := attendance.NewService(conf, repo, classifier, syncer, mailSvc, logger)
	usrSvc := user.NewService(conf)

	app := echoapi.NewServer(&echoapi.Options{
		Conf:          conf,
		UserSvc:       usrSvc,
		AttendanceSvc: attSvc,
	})
	logger.Info("starting server on " + conf.Server.Address)
	app.Start()
}
