package rover

import (
	"log"
	"math"
)

// applyOverrides runs the checks evaluated every tick before the per-mode
// policy, in order: target sighting, return-home countdown, stall
// relaxation, circling, home trigger and stuck detection. It reports whether
// any of them changed the mode or the command.
func (c *Controller) applyOverrides(st *NavigationState, in DecisionInput, cmd *ActuationCommand) bool {
	fired := false
	fired = c.targetSighted(st, in, cmd) || fired
	fired = c.tryHomeCountdown(st) || fired
	c.relaxGoForward(st)
	fired = c.circling(st, in, cmd) || fired
	fired = c.homeTrigger(st, in) || fired
	fired = c.stuck(st, in, cmd) || fired
	return fired
}

// targetSighted stops the rover and enters pickup as soon as a target is seen.
func (c *Controller) targetSighted(st *NavigationState, in DecisionInput, cmd *ActuationCommand) bool {
	if len(in.TargetPolar) < c.cfg.MinTargetAngles || st.Mode == ModePickup {
		return false
	}
	*cmd = ActuationCommand{Brake: c.cfg.PickupBrake}
	st.Mode = ModePickup
	return true
}

// tryHomeCountdown retries home once the post-stuck countdown expires.
func (c *Controller) tryHomeCountdown(st *NavigationState) bool {
	if st.Counters.TryHome <= 0 {
		return false
	}
	st.Counters.TryHome--
	if st.Counters.TryHome > 0 || st.Mode == ModeHome {
		return false
	}
	st.Mode = ModeHome
	return true
}

// relaxGoForward lowers the room needed to leave stop after a long stall in
// stop or unstuck, and restores it after a while at the lower value.
func (c *Controller) relaxGoForward(st *NavigationState) {
	if st.Mode == ModeUnstuck || st.Mode == ModeStop {
		st.Counters.Unstuck++
		if st.Counters.Unstuck > c.cfg.StallFrames && st.GoForward != c.cfg.GoForwardRelaxed {
			log.Printf("[NAV] Stalled for %d ticks, relaxing go-forward to %d", st.Counters.Unstuck, c.cfg.GoForwardRelaxed)
			st.GoForward = c.cfg.GoForwardRelaxed
		}
	} else {
		st.Counters.Unstuck = 0
	}

	if st.GoForward == c.cfg.GoForwardRelaxed {
		st.Counters.LowForward++
		if st.Counters.LowForward >= c.cfg.RelaxedFrames {
			st.GoForward = c.cfg.GoForward
			st.Counters.LowForward = 0
		}
	} else {
		st.Counters.LowForward = 0
	}
}

// circling breaks out of endless loops in wide open areas: steering near the
// limit while driving forward for too long forces unstuck.
func (c *Controller) circling(st *NavigationState, in DecisionInput, cmd *ActuationCommand) bool {
	if st.Mode != ModeForward || in.PickingUp ||
		math.Abs(cmd.Steer) <= c.cfg.CirclingSteer || in.Velocity <= c.cfg.CirclingVel {
		st.Counters.MaxSteer = 0
		return false
	}

	st.Counters.MaxSteer++
	if st.Counters.MaxSteer <= c.cfg.CirclingFrames {
		return false
	}
	log.Printf("[NAV] Circling for %d ticks, switching to unstuck", st.Counters.MaxSteer)
	*cmd = ActuationCommand{}
	st.StuckYaw = in.Pose.Yaw
	st.Mode = ModeUnstuck
	st.Counters.MaxSteer = 0
	return true
}

// homeTrigger captures the start position on the first tick and switches to
// home once the map is well covered and the rover is back near the start.
func (c *Controller) homeTrigger(st *NavigationState, in DecisionInput) bool {
	pos := in.Pose.Position()
	if st.Start == nil {
		st.Start = &pos
		return false
	}

	st.DistanceToStart = Distance(pos, *st.Start)
	if st.Mode == ModeUnstuck || in.MapFill <= c.cfg.HomeFillThreshold ||
		st.DistanceToStart >= c.cfg.HomeProximity {
		return false
	}

	if !st.ReadyForHome {
		log.Printf("[NAV] Map fill %d, %.1fm from start: ready for home", in.MapFill, st.DistanceToStart)
	}
	st.ReadyForHome = true
	if st.Counters.TryHome > 0 || st.Mode == ModeHome {
		return false
	}
	st.Mode = ModeHome
	return true
}

// stuck detects commanded throttle without motion and backs off into unstuck.
func (c *Controller) stuck(st *NavigationState, in DecisionInput, cmd *ActuationCommand) bool {
	if in.PickingUp || in.Velocity >= c.cfg.StuckVel || cmd.Throttle == 0 {
		st.Counters.Stuck = 0
		return false
	}

	st.Counters.Stuck++
	if st.Counters.Stuck <= c.cfg.StuckFrames {
		return false
	}
	log.Printf("[NAV] Stuck at (%.1f, %.1f), switching to unstuck", in.Pose.X, in.Pose.Y)
	*cmd = ActuationCommand{}
	st.StuckYaw = in.Pose.Yaw
	st.Mode = ModeUnstuck
	st.Counters.Stuck = 0
	if st.ReadyForHome {
		st.Counters.TryHome = c.cfg.TryHomeFrames
	}
	return true
}
