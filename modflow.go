package main

import (
	"database/sql"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/wansing/modflow/backend"
	"github.com/wansing/modflow/core"
	"github.com/wansing/modflow/sqldb"
	"github.com/wansing/modflow/util"
	"github.com/xo/dburl"
)

func init() {
	log.SetFlags(0) // no log prefixes, on most systems systemd-journald adds them
}

func main() {

	var dbArg string // is in both FlagSets

	// default FlagSet

	flag.StringVar(&dbArg, "db", "sqlite3:modflow.sqlite3?_busy_timeout=10000&_journal=WAL&_sync=NORMAL&cache=shared", "sql database url, see github.com/xo/dburl")
	var configFile = flag.String("config", "", "read listen address, database url and policy from this ini `file`")
	var listenAddr = flag.String("listen", "127.0.0.1:8080", "serve HTTP at this `ip:port`")
	var retractOnEdit = flag.Bool("retract-on-edit", false, "editing an approved node retracts its public counterpart")

	// init FlagSet

	var initFlags = flag.NewFlagSet("init", flag.ExitOnError)

	initFlags.StringVar(&dbArg, "db", "sqlite3:modflow.sqlite3?_busy_timeout=10000&_journal=WAL&_sync=NORMAL&cache=shared", "sql database url, see github.com/xo/dburl") // copied from above
	var initInsert = initFlags.Bool("insert", false, "creates the given user")
	var initGrant = initFlags.Bool("grant", false, "grants the given capabilities to the given user")
	var initList = initFlags.Bool("list", false, "lists all users and grants")
	var username = initFlags.String("user", "", "specifies a user `name`")
	var superuser = initFlags.Bool("superuser", false, "the created user bypasses all permission checks")
	var nodeID = initFlags.Int("node", 0, "subtree root `id` of the grant, zero means the whole tree")
	var capabilities = initFlags.String("capabilities", "", "comma-separated grant capabilities: add,change,delete,publish")
	var moderate = initFlags.Bool("moderate", false, "the user's approval is required below the grant node")

	if len(os.Args) > 1 && os.Args[1] == "init" {
		initFlags.Parse(os.Args[2:])
	} else {
		flag.Parse()
	}

	// config file overrides flag defaults

	if *configFile != "" {
		config, err := util.Ini(*configFile)
		if err != nil {
			log.Printf("could not read config file: %v", err)
			return
		}
		if v, ok := config["db"]; ok {
			dbArg = v
		}
		if v, ok := config["listen"]; ok {
			*listenAddr = v
		}
		if v, ok := config["retract-on-edit"]; ok {
			*retractOnEdit, _ = strconv.ParseBool(v)
		}
	}

	// database

	dbURL, err := dburl.Parse(dbArg)
	if err != nil {
		log.Printf("could not parse database url: %v", err)
		return
	}

	sqlDB, err := sql.Open(dbURL.Driver, dbURL.DSN)
	if err != nil {
		log.Printf("could not open sql database: %v", err)
		return
	}

	if err = sqlDB.Ping(); err != nil {
		log.Printf("could not ping sql database: %v", err)
		return
	}

	log.Printf("using database %s", dbURL.String())

	// assemble stuff

	db := &core.CoreDB{}
	db.GrantDB = sqldb.NewGrantDB(sqlDB)
	db.NodeDB = sqldb.NewNodeDB(sqlDB)
	db.PublicDB = sqldb.NewPublicDB(sqlDB)
	db.UserDB = sqldb.NewUserDB(sqlDB)
	db.Policy.RetractOnEdit = *retractOnEdit

	defer func() {
		log.Println("closing database")
		sqlDB.Close()
	}()

	// init

	if initFlags.Parsed() {
		switch {
		case *initInsert:
			if *username != "" {
				insertUser(db, *username, *superuser)
			}
		case *initGrant:
			if *username != "" {
				grant(db, *username, *nodeID, *capabilities, *moderate)
			}
		case *initList:
			list(db)
		}
		return
	}

	listen(db, *listenAddr)
}

func insertUser(db *core.CoreDB, name string, superuser bool) {
	if !db.Writeable() {
		log.Println("user database is not writeable")
		return
	}
	if _, err := db.InsertUser(name, superuser, true); err != nil {
		log.Printf("error creating user %s: %v", name, err)
	}
}

func list(db *core.CoreDB) {

	users, err := db.GetAllUsers(1000, 0)
	if err != nil {
		log.Printf("error listing users: %v", err)
		return
	}
	for _, u := range users {
		log.Printf("user %d: %s superuser=%t", u.ID(), u.Name(), u.Superuser())
	}

	grants, err := db.GetAllGrants()
	if err != nil {
		log.Printf("error listing grants: %v", err)
		return
	}
	for _, g := range grants {
		log.Printf("grant: user %d node %d capabilities=%s moderate=%t", g.UserID(), g.NodeID(), g.Capabilities(), g.Moderate())
	}
}

func grant(db *core.CoreDB, username string, nodeID int, capabilities string, moderate bool) {

	user, err := db.GetUserByName(username)
	if err != nil {
		log.Printf("error getting user %s: %v", username, err)
		return
	}

	caps, err := core.ParseCapabilitySet(capabilities)
	if err != nil {
		log.Printf("error parsing capabilities: %v", err)
		return
	}

	if err := db.InsertGrant(user.ID(), nodeID, caps, moderate); err != nil {
		log.Printf("error granting: %v", err)
		return
	}
}

func listen(db *core.CoreDB, addr string) {

	sigintChannel := make(chan os.Signal, 1)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Println(err)
		return
	}

	log.Printf("listening to %s", addr)

	httpSrv := &http.Server{
		Handler:      backend.NewBackendRouter(db),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := httpSrv.Serve(listener); err != nil {

			// don't panic, we want a graceful shutdown
			if err != http.ErrServerClosed {
				log.Printf("error listening: %v", err)
			}

			// ensure graceful shutdown
			sigintChannel <- os.Interrupt
		}
	}()

	// graceful shutdown

	signal.Notify(sigintChannel, os.Interrupt, syscall.SIGTERM) // SIGINT (Interrupt) or SIGTERM
	<-sigintChannel

	log.Println("shutting down")
	httpSrv.Close()
}
