package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/track.report/internal/detect"
	"github.com/banshee-data/track.report/internal/track"
)

// Car is a registered vehicle.
type Car struct {
	ID      string
	GPSCode string
	Name    string
}

// InsertCar registers a vehicle.
func (db *DB) InsertCar(ctx context.Context, c Car) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO cars (car_id, gps_code, name) VALUES (?, ?, ?)`,
		c.ID, c.GPSCode, c.Name)
	if err != nil {
		return fmt.Errorf("insert car %s: %w", c.ID, err)
	}
	return nil
}

// InsertSensor installs a sensor on a vehicle.
func (db *DB) InsertSensor(ctx context.Context, carID string, s track.SensorInfo) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO sensors (sensor_id, car_id, kind, name) VALUES (?, ?, ?, ?)`,
		s.ID, carID, s.Kind, s.Name)
	if err != nil {
		return fmt.Errorf("insert sensor %s: %w", s.ID, err)
	}
	return nil
}

// InsertPoints stores track points and the sensor readings they carry in a
// single transaction. Points already stored for the same timestamp are
// replaced.
func (db *DB) InsertPoints(ctx context.Context, carID string, points track.Track) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	pointStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO track_points
		(car_id, ts, lat, lon, speed, odometer_delta) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer pointStmt.Close()

	readingStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO sensor_readings
		(sensor_id, ts, value) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer readingStmt.Close()

	for _, p := range points {
		if _, err := pointStmt.ExecContext(ctx, carID, p.Timestamp, p.Lat, p.Lon, p.Speed, p.OdometerDelta); err != nil {
			return fmt.Errorf("insert point %d: %w", p.Timestamp, err)
		}
		for sid, v := range p.Sensors {
			if _, err := readingStmt.ExecContext(ctx, sid, p.Timestamp, v); err != nil {
				return fmt.Errorf("insert reading %s@%d: %w", sid, p.Timestamp, err)
			}
		}
	}
	return tx.Commit()
}

// TrackStore serves tracks and sensor catalogs out of the database.
type TrackStore struct {
	db        *DB
	smoothing int
}

// NewTrackStore creates a TrackStore. smoothing is the moving average width
// of the processed sensor signals.
func NewTrackStore(db *DB, smoothing int) *TrackStore {
	return &TrackStore{db: db, smoothing: smoothing}
}

// resolveCar maps an identity to a car id. ok is false when no such vehicle
// is registered.
func (s *TrackStore) resolveCar(ctx context.Context, id track.Identity) (carID string, ok bool, err error) {
	q, arg := `SELECT car_id FROM cars WHERE car_id = ?`, id.CarID
	if id.CarID == "" {
		q, arg = `SELECT car_id FROM cars WHERE gps_code = ?`, id.GPSCode
	}
	err = s.db.QueryRowContext(ctx, q, arg).Scan(&carID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve %s: %w", id, err)
	}
	return carID, true, nil
}

// FetchTrack implements track.Fetcher. An unknown vehicle yields an empty
// track with no distances.
func (s *TrackStore) FetchTrack(ctx context.Context, req track.FetchRequest) (*track.FetchResult, error) {
	carID, ok, err := s.resolveCar(ctx, req.Identity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &track.FetchResult{Track: track.Track{}, CarsSensors: []track.SensorInfo{}}, nil
	}

	var (
		points   track.Track
		sensors  []track.SensorInfo
		readings map[int64]map[string]float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		points, err = s.points(gctx, carID, req.From, req.To)
		return err
	})
	g.Go(func() (err error) {
		sensors, err = s.sensors(gctx, carID)
		return err
	})
	if req.WithSensors {
		g.Go(func() (err error) {
			readings, err = s.readings(gctx, carID, req.From, req.To)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch track for %s: %w", req.Identity, err)
	}

	for i := range points {
		if r, ok := readings[points[i].Timestamp]; ok {
			points[i].Sensors = r
		}
	}

	distance := points.DistanceBetween(req.From, req.To)
	agg := PathLength(points)
	res := &track.FetchResult{
		Track:        points,
		Distance:     &distance,
		DistanceAgg2: &agg,
		CarsSensors:  sensors,
	}
	if req.WithSensors {
		var fuel []string
		for _, si := range sensors {
			if si.Kind == track.KindFuel {
				fuel = append(fuel, si.ID)
			}
		}
		res.SensorsData = detect.BuildSensorsData(points, fuel, s.smoothing)
	}

	if req.Debug {
		log.Printf("fetch %s [%d, %d]: %d points, %d sensors, distance=%.1f agg2=%.1f",
			req.Identity, req.From, req.To, len(points), len(sensors), distance, agg)
	}
	return res, nil
}

// SensorKinds implements detect.SensorCatalog.
func (s *TrackStore) SensorKinds(ctx context.Context, id track.Identity) (map[string]string, error) {
	carID, ok, err := s.resolveCar(ctx, id)
	if err != nil || !ok {
		return map[string]string{}, err
	}
	sensors, err := s.sensors(ctx, carID)
	if err != nil {
		return nil, err
	}
	kinds := make(map[string]string, len(sensors))
	for _, si := range sensors {
		kinds[si.ID] = si.Kind
	}
	return kinds, nil
}

func (s *TrackStore) points(ctx context.Context, carID string, from, to int64) (track.Track, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ts, lat, lon, speed, odometer_delta
		FROM track_points WHERE car_id = ? AND ts BETWEEN ? AND ? ORDER BY ts`, carID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := track.Track{}
	for rows.Next() {
		var p track.Point
		if err := rows.Scan(&p.Timestamp, &p.Lat, &p.Lon, &p.Speed, &p.OdometerDelta); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *TrackStore) sensors(ctx context.Context, carID string) ([]track.SensorInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sensor_id, kind, name FROM sensors WHERE car_id = ? ORDER BY sensor_id`, carID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []track.SensorInfo{}
	for rows.Next() {
		var si track.SensorInfo
		if err := rows.Scan(&si.ID, &si.Kind, &si.Name); err != nil {
			return nil, err
		}
		out = append(out, si)
	}
	return out, rows.Err()
}

// readings loads the car's sensor values in the window, keyed by timestamp.
func (s *TrackStore) readings(ctx context.Context, carID string, from, to int64) (map[int64]map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT r.sensor_id, r.ts, r.value
		FROM sensor_readings r JOIN sensors s ON s.sensor_id = r.sensor_id
		WHERE s.car_id = ? AND r.ts BETWEEN ? AND ?`, carID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]map[string]float64{}
	for rows.Next() {
		var (
			sid string
			ts  int64
			v   float64
		)
		if err := rows.Scan(&sid, &ts, &v); err != nil {
			return nil, err
		}
		if out[ts] == nil {
			out[ts] = map[string]float64{}
		}
		out[ts][sid] = v
	}
	return out, rows.Err()
}
