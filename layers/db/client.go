package db

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/logger/dlog"
)

type Config struct {
	URI      string
	User     string
	Password string
	Database string
}

type Connection struct {
	driver   neo4j.DriverWithContext
	database string
	log      *slog.Logger
}

type Params map[string]any

type Write func(params Params, stmts ...string) error
type TransactionExecute func(write Write) error

func (conn *Connection) Transaction(ctx context.Context, execute TransactionExecute) error {
	session := conn.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: conn.database})
	defer session.Close(ctx)
	transaction, err := session.BeginTransaction(ctx)
	if err != nil {
		conn.log.Error("Transaction failed", "err", err)
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err = execute(conn.txWrite(ctx, transaction)); err != nil {
		if err2 := transaction.Rollback(ctx); err2 != nil {
			conn.log.Error("Rollback failed", "err", err2)
		}
		return err
	}
	if err = transaction.Commit(ctx); err != nil {
		conn.log.Error("Transaction failed", "err", err)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (conn *Connection) txWrite(ctx context.Context, transaction neo4j.ExplicitTransaction) Write {
	return func(params Params, stmts ...string) error {
		stmt := strings.Join(stmts, " ")
		conn.log.Debug("Writing", "stmt", stmt)
		if params == nil {
			params = Params{}
		}
		if _, err := transaction.Run(ctx, stmt, params); err != nil {
			conn.log.Error("Transaction run failed", "err", err)
			return fmt.Errorf("run %q: %w", stmt, err)
		}
		return nil
	}
}

func (conn *Connection) Query(ctx context.Context, params Params, stmts ...string) (*neo4j.EagerResult, error) {
	stmt := strings.Join(stmts, " ")
	conn.log.Debug("Querying", "stmt", stmt)
	if params == nil {
		params = Params{}
	}
	result, err := neo4j.ExecuteQuery(ctx, conn.driver, stmt, params, neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(conn.database))
	if err != nil {
		conn.log.Error("Error executing query", "err", err)
		return nil, fmt.Errorf("query %q: %w", stmt, err)
	}
	return result, nil
}

func (conn *Connection) Close(ctx context.Context) {
	if conn.driver == nil {
		return
	}
	_ = conn.driver.Close(ctx)
	conn.log.Info("db Connection closed.")
}

// Connect opens a driver and verifies the server answers.
func Connect(ctx context.Context, cfg Config, log *slog.Logger) (*Connection, error) {
	if log == nil {
		log = dlog.Log
	}
	if cfg.Database == "" {
		cfg.Database = "neo4j"
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}
	if err = driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}
	log.Info("Connection established.", "URI", cfg.URI, "database", cfg.Database)
	return &Connection{driver: driver, database: cfg.Database, log: log}, nil
}
