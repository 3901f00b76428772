package spatial

import (
	"math"
	"sync"

	"github.com/dhconnelly/rtreego"
)

const earthRadiusM = 6371000.0

// entry is the Spatial object stored in the tree. The same pointer is kept in
// the byID map so Delete can match it.
type entry struct {
	id   string
	lng  float64
	lat  float64
	rect rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect { return e.rect }

// Index is a thread-safe R-tree over incident locations, keyed by incident ID.
// It answers "which incidents lie within R meters of P" with a bounding-box
// search followed by an exact great-circle check.
type Index struct {
	mu   sync.RWMutex
	tree *rtreego.Rtree
	byID map[string]*entry
}

func NewIndex() *Index {
	return &Index{
		tree: rtreego.NewTree(2, 25, 50),
		byID: make(map[string]*entry),
	}
}

// Upsert inserts or moves a point for the given incident id.
func (x *Index) Upsert(id string, lng, lat float64) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if old, ok := x.byID[id]; ok {
		x.tree.Delete(old)
		delete(x.byID, id)
	}

	e := &entry{id: id, lng: lng, lat: lat}
	e.rect = rtreego.Point{lng, lat}.ToRect(1e-9)
	x.tree.Insert(e)
	x.byID[id] = e
}

// Remove drops the incident from the index. Unknown ids are a no-op.
func (x *Index) Remove(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if e, ok := x.byID[id]; ok {
		x.tree.Delete(e)
		delete(x.byID, id)
	}
}

// Len reports how many points are indexed.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byID)
}

// Within returns the ids of all indexed points within radiusMeters of the
// given center.
func (x *Index) Within(lng, lat, radiusMeters float64) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	rect, err := boundingRect(lng, lat, radiusMeters)
	if err != nil {
		return nil
	}

	var ids []string
	for _, s := range x.tree.SearchIntersect(rect) {
		e := s.(*entry)
		if DistanceMeters(lat, lng, e.lat, e.lng) <= radiusMeters {
			ids = append(ids, e.id)
		}
	}
	return ids
}

// boundingRect builds the lat/lng box that encloses the radius circle. The
// box over-covers near the poles; the exact distance check filters that out.
func boundingRect(lng, lat, radiusMeters float64) (rtreego.Rect, error) {
	dLat := radiusMeters / earthRadiusM * (180 / math.Pi)

	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLng := dLat / cosLat

	return rtreego.NewRect(
		rtreego.Point{lng - dLng, lat - dLat},
		[]float64{2 * dLng, 2 * dLat},
	)
}

// DistanceMeters calculates the great-circle distance between two points
// on the earth (specified in decimal degrees).
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	radLat1 := lat1 * math.Pi / 180
	radLon1 := lon1 * math.Pi / 180
	radLat2 := lat2 * math.Pi / 180
	radLon2 := lon2 * math.Pi / 180

	deltaLat := radLat2 - radLat1
	deltaLon := radLon2 - radLon1

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(radLat1)*math.Cos(radLat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}
