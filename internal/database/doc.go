// Package database provides PostgreSQL connectivity and repositories.
//
// Uses pgx for connection pooling. Repositories implement the domain
// interfaces: TokenRepository (encrypted OAuth credentials across the
// unified and legacy stores) and UserRepository (seen-username rows).
package database
