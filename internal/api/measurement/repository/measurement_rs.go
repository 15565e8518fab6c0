package measurementRepository

import (
	"context"
	"database/sql"
	"errors"

	"LensFitter/internal/api/measurement"
	"LensFitter/internal/entity"
	contextPkg "LensFitter/pkg/context"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

func (r *measurementRepository) Create(c context.Context, m entity.Measurement) error {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(queryCreateMeasurement, m)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for Create")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating measurement")
		return err
	}

	return nil
}

func (r *measurementRepository) GetByID(c context.Context, id string) (entity.Measurement, error) {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(queryGetMeasurementByID, map[string]interface{}{"id": id})
	if err != nil {
		return entity.Measurement{}, err
	}
	query = r.q.Rebind(query)

	var m entity.Measurement
	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Measurement{}, measurement.ErrMeasurementNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetByID query err")
		return entity.Measurement{}, err
	}

	return m, nil
}

func (r *measurementRepository) ListByUser(c context.Context, userID string, limit, offset int) ([]entity.Measurement, error) {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(queryListMeasurementsByUser, map[string]interface{}{
		"user_id": userID,
		"limit":   limit,
		"offset":  offset,
	})
	if err != nil {
		return nil, err
	}
	query = r.q.Rebind(query)

	measurements := make([]entity.Measurement, 0, limit)
	if err := sqlx.SelectContext(c, r.q, &measurements, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListByUser query err")
		return nil, err
	}

	return measurements, nil
}

func (r *measurementRepository) CountByUser(c context.Context, userID string) (int, error) {
	query, args, err := sqlx.Named(queryCountMeasurementsByUser, map[string]interface{}{"user_id": userID})
	if err != nil {
		return 0, err
	}
	query = r.q.Rebind(query)

	var total int
	if err := sqlx.GetContext(c, r.q, &total, query, args...); err != nil {
		return 0, err
	}

	return total, nil
}

func (r *measurementRepository) Delete(c context.Context, id string) error {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(queryDeleteMeasurement, map[string]interface{}{"id": id})
	if err != nil {
		return err
	}
	query = r.q.Rebind(query)

	res, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when deleting measurement")
		return err
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return measurement.ErrMeasurementNotFound
	}

	return nil
}
