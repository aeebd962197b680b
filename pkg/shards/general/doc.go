// Package general provides the basic units: constants, scope variables
// (Set, Update, Get, Inc), logging and cooperative pauses.
package general
