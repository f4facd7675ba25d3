// Package registry implements the in-memory room registry behind the live-update features.
//
// The Registry owns three tables: connections, rooms (room -> member connections) and
// identities (user -> connections). All three are guarded by one RWMutex so that every
// mutation is atomic with respect to broadcasts and stats. Rooms and identities are
// deleted as soon as their member set becomes empty.
//
// The Broadcaster only reads the tables. It selects recipients under the read lock and
// delivers after releasing it, so a slow or failing transport never blocks membership changes.
package registry
