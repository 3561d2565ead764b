// Package jwt issues and verifies the signed tokens embedded in password
// reset links.
package jwt
