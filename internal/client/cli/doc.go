// Package cli implements authctl, an interactive client for the gophauth
// account service: registration, login, email confirmation, password
// reset and session management.
package cli
