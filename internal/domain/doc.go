// Package domain holds the value types shared by the registry and its adapters: identities,
// roles, room ids, broadcasts and the Transport contract. It has no state and no dependencies.
package domain
