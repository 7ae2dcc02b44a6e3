// Package account drives the login, signup, and logout flows over the
// session store. Entering the login or signup flow clears any existing
// session first, so a failed login always leaves the client anonymous.
package account
