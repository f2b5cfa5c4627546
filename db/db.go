package db

import (
    "context"
    "database/sql"
    "fmt"
    "net/url"
    "runtime"
    "time"

    "github.com/golang-migrate/migrate/v4"
    "github.com/golang-migrate/migrate/v4/database/sqlite3"
    _ "github.com/golang-migrate/migrate/v4/source/file"
    _ "github.com/mattn/go-sqlite3"
)

// DBPool splits reads and writes over two sqlite connections. The write
// connection is limited to a single open conn so WAL writers never contend.
type DBPool struct {
    ReadDB  *sql.DB
    WriteDB *sql.DB
}

type RequestDB struct {
    *sql.Tx
    conn *sql.DB
}

const (
    busyTimeout = "5000"      // 5 seconds
    cacheSize   = "-20000"    // 20MB
    mmapSize    = "268435456" // 256MB
    journalMode = "WAL"
    synchronous = "NORMAL"
    tempStore   = "MEMORY"
    foreignKeys = "true"
)

func InitDB(database, migrationsDir string) (*DBPool, error) {
    writeDB, err := openConnection(database, false)
    if err != nil {
        return nil, fmt.Errorf("write pool init failed: %w", err)
    }

    readDB, err := openConnection(database, true)
    if err != nil {
        return nil, fmt.Errorf("read pool init failed: %w", err)
    }

    if err := runMigrations(writeDB, migrationsDir); err != nil {
        return nil, fmt.Errorf("migration failed: %w", err)
    }

    return &DBPool{
        ReadDB:  readDB,
        WriteDB: writeDB,
    }, nil
}

func runMigrations(db *sql.DB, dir string) error {
    driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
    if err != nil {
        return err
    }

    m, err := migrate.NewWithDatabaseInstance("file://"+dir, "sqlite3", driver)
    if err != nil {
        return err
    }

    if err := m.Up(); err != nil && err != migrate.ErrNoChange {
        return err
    }

    return nil
}

func openConnection(database string, readonly bool) (*sql.DB, error) {
    params := make(url.Values)
    params.Add("_journal_mode", journalMode)
    params.Add("_busy_timeout", busyTimeout)
    params.Add("_synchronous", synchronous)
    params.Add("_cache_size", cacheSize)
    params.Add("_foreign_keys", foreignKeys)
    params.Add("_temp_store", tempStore)

    if readonly {
        params.Add("mode", "ro")
    } else {
        params.Add("mode", "rwc")
        params.Add("_txlock", "immediate")
    }

    connStr := fmt.Sprintf("file:%s?%s", database, params.Encode())
    db, err := sql.Open("sqlite3", connStr)
    if err != nil {
        return nil, err
    }

    _, err = db.Exec(fmt.Sprintf("PRAGMA mmap_size=%s;", mmapSize))
    if err != nil {
        return nil, fmt.Errorf("mmap_size pragma failed: %w", err)
    }

    if readonly {
        db.SetMaxOpenConns(max(2, runtime.NumCPU()))
        db.SetMaxIdleConns(2)
    } else {
        db.SetMaxOpenConns(1)
        db.SetMaxIdleConns(1)
    }

    db.SetConnMaxLifetime(time.Hour)

    if err := db.Ping(); err != nil {
        return nil, fmt.Errorf("connection ping failed: %w", err)
    }

    return db, nil
}

// sqlite transactions are serializable already; the driver rejects any
// explicit isolation level other than the default.
func (pool *DBPool) GetReadTx(ctx context.Context) (*RequestDB, error) {
    tx, err := pool.ReadDB.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    return &RequestDB{Tx: tx, conn: pool.ReadDB}, nil
}

func (pool *DBPool) GetWriteTx(ctx context.Context) (*RequestDB, error) {
    tx, err := pool.WriteDB.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    return &RequestDB{Tx: tx, conn: pool.WriteDB}, nil
}

func (pool *DBPool) Ping(ctx context.Context) error {
    return pool.ReadDB.PingContext(ctx)
}

func (pool *DBPool) Close() {
    if pool.ReadDB != nil {
        pool.ReadDB.Close()
    }
    if pool.WriteDB != nil {
        pool.WriteDB.Close()
    }
}

func (rdb *RequestDB) Commit() error {
    return rdb.Tx.Commit()
}

func (rdb *RequestDB) Rollback() error {
    return rdb.Tx.Rollback()
}
