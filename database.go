package main

import (
	"database/sql"
	"os"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

/*
trajectory log. one row per sphere per frame, taken from the world itself
rather than from what the camera saw.

really only 1 worker is useful for sqlite since it allows only 1 writer at a time.
*/

const schema = `
CREATE TABLE spheres (
	frame 	INTEGER,
	id 		INTEGER, -- sphere ref
	x 		REAL,
	y 		REAL,
	z 		REAL,
	radius 	REAL);
`

const indices = `
CREATE INDEX idx_frame ON spheres (frame, id);
CREATE INDEX idx_id ON spheres (id);
`

const insert = `INSERT INTO spheres VALUES (?, ?, ?, ?, ?, ?);`
const queryFrame = `SELECT id, x, y, z, radius FROM spheres WHERE frame = ? ORDER BY id ASC;`

// opens and initializes a new db in filename. refuses to touch an
// existing file.
func opendb(filename string) (*sql.DB, error) {
	if _, err := os.Stat(filename); err == nil {
		return nil, errors.Errorf("%s exists", filename)
	}
	db, err := sql.Open("sqlite3", "file:"+filename+"?_journal_mode=OFF&_synchronous=OFF")
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", filename)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create tables")
	}
	return db, nil
}

// runs create index statements on db.
func createIndices(db *sql.DB) error {
	_, err := db.Exec(indices)
	return errors.Wrap(err, "create indices")
}

// writes each frame to db in its own transaction.
func frameToSqlite(db *sql.DB, wg *sync.WaitGroup, ch chan *frameJob) {
	defer wg.Done()
	stmt, err := db.Prepare(insert)
	if err != nil {
		panic(err)
	}
	defer stmt.Close()

	for job := range ch {
		if err := writeFrame(db, stmt, job); err != nil {
			panic(err)
		}
	}
}

func writeFrame(db *sql.DB, stmt *sql.Stmt, job *frameJob) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	txstmt := tx.Stmt(stmt)
	for _, s := range job.Spheres {
		if _, err := txstmt.Exec(job.Frame, s.ID, s.X, s.Y, s.Z, s.Radius); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "insert frame %d sphere %d", job.Frame, s.ID)
		}
	}
	return errors.Wrapf(tx.Commit(), "commit frame %d", job.Frame)
}

// reads back the spheres recorded for frame.
func loadFrame(db *sql.DB, frame int) ([]frameSphere, error) {
	rows, err := db.Query(queryFrame, frame)
	if err != nil {
		return nil, errors.Wrapf(err, "query frame %d", frame)
	}
	defer rows.Close()

	var spheres []frameSphere
	for rows.Next() {
		var s frameSphere
		if err := rows.Scan(&s.ID, &s.X, &s.Y, &s.Z, &s.Radius); err != nil {
			return nil, errors.Wrapf(err, "scan frame %d", frame)
		}
		spheres = append(spheres, s)
	}
	return spheres, errors.Wrap(rows.Err(), "rows")
}
