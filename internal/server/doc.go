// Package server hosts the HTTP surface of the auth service: the Echo
// server, the ?a= action dispatch, the cookie manager, the user resolver,
// and the login/callback/logout/get_user handlers.
package server
