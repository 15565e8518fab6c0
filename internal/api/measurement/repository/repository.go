package measurementRepository

import (
	"LensFitter/internal/entity"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var db sqlx.ExtContext
	var commitFunc, rollbackFunc func() error

	db = r.DB

	if tx {
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		db = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Measurements: &measurementRepository{q: db, log: r.log},
		Commit:       commitFunc,
		Rollback:     rollbackFunc,
	}, nil
}

type Client struct {
	Measurements interface {
		Create(ctx context.Context, m entity.Measurement) error
		GetByID(ctx context.Context, id string) (entity.Measurement, error)
		ListByUser(ctx context.Context, userID string, limit, offset int) ([]entity.Measurement, error)
		CountByUser(ctx context.Context, userID string) (int, error)
		Delete(ctx context.Context, id string) error
	}

	Commit   func() error
	Rollback func() error
}

type measurementRepository struct {
	q   sqlx.ExtContext
	log *logrus.Logger
}
