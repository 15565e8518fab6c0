package entity

import "time"

// Measurement is one persisted fitting session. Landmarks holds the JSON encoded
// [[x,y,z],...] sequence the values were computed from.
type Measurement struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	PD            float64   `db:"pd"`
	FH            float64   `db:"fh"`
	Tilt          float64   `db:"tilt"`
	Vertex        float64   `db:"vertex"`
	FrameWidthMM  float64   `db:"frame_width_mm"`
	FrameWidthPx  int       `db:"frame_width_px"`
	FrameHeightPx int       `db:"frame_height_px"`
	Landmarks     string    `db:"landmarks"`
	PhotoKey      string    `db:"photo_key"`
	CreatedAt     time.Time `db:"created_at"`
}
