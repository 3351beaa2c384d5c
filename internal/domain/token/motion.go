package token

import "github.com/MRamiBalles/Sugoroku/server/internal/domain/space"

// Place teleports the token: position and target both become v and any walk
// in progress is dropped. Facing is left as it was.
func (t *Token) Place(v space.Vec3) {
	t.position = v
	t.target = v
	t.waypoints = nil
	t.moving = false
}

// SetTarget starts a straight walk toward v. Setting the current position as
// target leaves the token idle.
func (t *Token) SetTarget(v space.Vec3) {
	t.waypoints = nil
	t.target = v
	t.moving = t.position != v
}

// MoveAlong walks through each point of path in order. The token is idle
// afterwards only once the last point is reached.
func (t *Token) MoveAlong(path []space.Vec3) {
	if len(path) == 0 {
		return
	}
	t.target = path[0]
	t.waypoints = append([]space.Vec3(nil), path[1:]...)
	t.moving = true
}

// Step advances the walk by one tick and reports whether the token is still moving.
//
// Each axis is handled in the order x, y, z: an axis that differs from the
// target moves exactly one unit toward it. The sprite faces the direction of
// the last horizontal axis that moved, so a z move overrides an x move made
// in the same tick. Vertical moves never turn the sprite. A tick in which no
// axis moves settles the token.
//
// Stepping an idle token does nothing.
func (t *Token) Step() bool {
	if !t.moving {
		return false
	}

	if t.stepAxes() {
		return true
	}
	for len(t.waypoints) > 0 {
		t.target = t.waypoints[0]
		t.waypoints = t.waypoints[1:]
		if t.stepAxes() {
			return true
		}
	}

	t.moving = false
	return false
}

func (t *Token) stepAxes() bool {
	active := false
	for _, axis := range space.Axes {
		at, goal := t.position.Get(axis), t.target.Get(axis)
		if at == goal {
			continue
		}
		active = true

		dir := 1
		if goal < at {
			dir = -1
		}
		t.position = t.position.With(axis, at+dir)

		switch {
		case axis == space.AxisX && dir > 0:
			t.facing = FacingRight
		case axis == space.AxisX:
			t.facing = FacingLeft
		case axis == space.AxisZ && dir > 0:
			t.facing = FacingUp
		case axis == space.AxisZ:
			t.facing = FacingDown
		}
	}
	return active
}
