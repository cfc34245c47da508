package naming

import "sync"

// CollisionResolver tracks destination paths claimed by source files within
// a single run. Two sources that differ only by extension (a.mkv, a.mp4)
// mirror to the same destination; the first to claim it wins. All methods
// are goroutine-safe.
type CollisionResolver struct {
	mu     sync.Mutex
	owners map[string]string // output path → input path that owns it
}

// NewCollisionResolver creates a ready-to-use resolver.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{owners: make(map[string]string)}
}

// Claim records input as the owner of output. It returns ok=true if output
// was unclaimed or already owned by input; otherwise ok=false and the
// current owner.
func (cr *CollisionResolver) Claim(input, output string) (owner string, ok bool) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	owner, exists := cr.owners[output]
	if exists && owner != input {
		return owner, false
	}
	cr.owners[output] = input
	return input, true
}
