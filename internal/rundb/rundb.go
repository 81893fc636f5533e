// Package rundb records synthesis runs and adopted target commands in a
// ClickHouse database, when one is reachable. Everything here is
// fire-and-forget: an absent or broken database never affects synthesis.
package rundb

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2"
)

const databaseName = "heterodyne" // official SQL name of the database

// Connection wraps one ClickHouse connection plus the channels that
// serialize inserts behind it.
type Connection struct {
	conn   clickhouse.Conn
	err    error
	runmsg *RunMessage
	cmdmsg chan *CommandMessage
	sync.WaitGroup
}

// IsConnected reports whether inserts can be attempted.
func (db *Connection) IsConnected() bool {
	return (db != nil) && (db.conn != nil) && (db.err == nil)
}

// PingServer checks that the database is alive and prints its version.
func PingServer() error {
	db := createConnection()
	if !db.IsConnected() {
		return fmt.Errorf("database is not connected: %v", db.err)
	}
	v, err := db.conn.ServerVersion()
	if err != nil {
		return err
	}
	fmt.Printf("ClickHouse server is alive. Version:\n%s\n", v)
	return db.conn.Close()
}

// StartConnection opens the database, records the run-start row, and
// launches the insert handler. The returned Connection is always usable;
// on failure it is a dummy whose Record methods are no-ops.
func StartConnection(run *RunMessage, abort <-chan struct{}) *Connection {
	db := createConnection()
	db.runmsg = run
	db.logRun()
	if db.IsConnected() {
		db.Add(1)
		go db.handleConnection(abort)
	}
	return db
}

// DummyConnection returns a Connection that records nothing.
func DummyConnection() *Connection {
	return &Connection{err: fmt.Errorf("dummy connection")}
}

func createConnection() *Connection {
	db := &Connection{}
	auth := clickhouse.Auth{
		Database: databaseName,
		Username: os.Getenv("HETERODYNE_DB_USER"),
		Password: os.Getenv("HETERODYNE_DB_PASSWORD"),
	}
	client := clickhouse.ClientInfo{
		Products: []struct {
			Name    string
			Version string
		}{
			{Name: "heterodyne", Version: "unknown"},
		},
	}
	opt := clickhouse.Options{
		Addr:       []string{"localhost:9000"},
		Auth:       auth,
		ClientInfo: client,
		TLS:        nil,
	}
	conn, err := clickhouse.Open(&opt)
	if err != nil {
		db.err = err
		return db
	}
	db.conn = conn
	if err = conn.Ping(context.Background()); err != nil {
		if exception, ok := err.(*clickhouse.Exception); ok {
			fmt.Printf("Exception [%d] %s \n%s\n", exception.Code, exception.Message, exception.StackTrace)
		}
		db.err = err
		return db
	}
	db.cmdmsg = make(chan *CommandMessage)
	return db
}

func (db *Connection) logRun() {
	if !db.IsConnected() {
		return
	}
	ctx := context.Background()
	const nowait = false
	r := db.runmsg
	formattedStart := r.Start.Format("2006-01-02 15:04:05.000000")
	formattedEnd := r.End.Format("2006-01-02 15:04:05.000000")
	if err := db.conn.AsyncInsert(ctx, `INSERT INTO synthruns VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, nowait,
		r.ID, r.Hostname, r.Githash, r.Version, r.GoVersion,
		r.SampleRateHz, r.FramesPerBlock, formattedStart, formattedEnd,
	); err != nil {
		fmt.Println("Error raised on AsyncInsert into synthruns ", err)
		db.err = err
	}
}

func (db *Connection) handleConnection(abort <-chan struct{}) {
	defer db.Done()
	for {
		select {
		case <-abort:
			return
		case msg := <-db.cmdmsg:
			db.handleCommandMessage(msg)
		}
	}
}

// RecordCommand stores one adopted target command (if the DB is open).
func (db *Connection) RecordCommand(msg *CommandMessage) {
	if !db.IsConnected() || msg == nil {
		return
	}
	go func() { db.cmdmsg <- msg }()
}

func (db *Connection) handleCommandMessage(m *CommandMessage) {
	if !db.IsConnected() {
		return
	}
	ctx := context.Background()
	const nowait = false
	formattedWhen := m.When.Format("2006-01-02 15:04:05.000000")
	if err := db.conn.AsyncInsert(ctx, `INSERT INTO adoptedcommands VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, nowait,
		m.RunID, m.Raw, m.Freq0, m.Volts0, m.Freq1, m.Volts1, m.ParsedFields, formattedWhen,
	); err != nil {
		fmt.Println("Error raised on AsyncInsert into adoptedcommands ", err)
		db.err = err
	}
}

// Finish records the run-end time and closes the connection.
func (db *Connection) Finish() {
	if !db.IsConnected() {
		return
	}
	db.runmsg.End = nowFunc()
	db.logRun()
	db.conn.Close()
	db.conn = nil
}
