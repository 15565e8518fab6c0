package measurementRepository

const (
	queryCreateMeasurement = `
INSERT INTO measurements (id, user_id, pd, fh, tilt, vertex, frame_width_mm, frame_width_px,
                          frame_height_px, landmarks, photo_key, created_at)
VALUES (:id, :user_id, :pd, :fh, :tilt, :vertex, :frame_width_mm, :frame_width_px,
        :frame_height_px, :landmarks, :photo_key, :created_at)`

	queryGetMeasurementByID = `
SELECT id, user_id, pd, fh, tilt, vertex, frame_width_mm, frame_width_px, frame_height_px,
       landmarks, photo_key, created_at
FROM measurements
    WHERE id = :id`

	queryListMeasurementsByUser = `
SELECT id, user_id, pd, fh, tilt, vertex, frame_width_mm, frame_width_px, frame_height_px,
       '' AS landmarks, photo_key, created_at
FROM measurements
    WHERE user_id = :user_id
ORDER BY created_at DESC, id DESC
LIMIT :limit OFFSET :offset`

	queryCountMeasurementsByUser = `
SELECT COUNT(*)
FROM measurements
    WHERE user_id = :user_id`

	queryDeleteMeasurement = `
DELETE FROM measurements
WHERE id = :id`
)
