// Package voteengine ranks the free request lane. Users spend a monthly vote
// allowance to push pending free-lane submissions up the queue; every cast and
// removal re-ranks the lane through the submission projection in the same
// unit of work.
package voteengine
