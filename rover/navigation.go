package rover

import (
	"log"
	"math"
)

// Pursuit gives the controller access to the sample currently being
// approached when it is out of sight.
type Pursuit interface {
	Pursued() (Point, bool)
	ClearPursued()
}

// DecisionInput is what the controller sees of one tick.
type DecisionInput struct {
	Pose            Pose
	Velocity        float64
	NearTarget      bool
	PickingUp       bool
	PickupConfirmed bool

	// Vision is false on ticks whose frame was skipped as unstable; the
	// per-mode policy is skipped and the rover coasts.
	Vision      bool
	NavPolar    []PolarPoint
	TargetPolar []PolarPoint

	MapFill int
	Pursuit Pursuit
}

// Controller turns a tick's input into an actuation command, driving the
// navigation state machine. It keeps no state of its own.
type Controller struct {
	cfg NavigationConfig
}

// NewController creates a controller with the given tuning.
func NewController(cfg NavigationConfig) *Controller {
	return &Controller{cfg: cfg}
}

// Decide advances st by one tick and returns the command to send.
//
// home_dance is absorbing and handled first. Otherwise the overrides run in
// a fixed order, each able to change mode or actuation; the per-mode policy
// runs only when none of them fired. A tick without vision cuts throttle and
// steer but keeps any brake. Leaving pickup by any path drops the pursued
// sample.
func (c *Controller) Decide(st *NavigationState, in DecisionInput) ActuationCommand {
	cmd := st.Last
	cmd.Pickup = false

	if st.Mode == ModeHomeDance {
		cmd = c.homeDance(st, in)
		st.Last = cmd
		return cmd
	}

	before := st.Mode
	fired := c.applyOverrides(st, in, &cmd)

	switch {
	case !in.Vision:
		cmd = ActuationCommand{Brake: cmd.Brake}
	case !fired:
		switch st.Mode {
		case ModeForward:
			cmd = c.forward(st, in)
		case ModeStop:
			cmd = c.stop(st, in)
		case ModePickup:
			cmd = c.pickup(st, in, cmd)
		case ModeUnstuck:
			cmd = c.unstuck(st, in)
		case ModeHome:
			cmd = c.home(st, in)
		}
	}

	if before == ModePickup && st.Mode != ModePickup && in.Pursuit != nil {
		in.Pursuit.ClearPursued()
	}

	cmd.Steer = clamp(cmd.Steer, -c.cfg.MaxSteer, c.cfg.MaxSteer)
	if st.Mode != before {
		log.Printf("[NAV] %s -> %s at (%.1f, %.1f) yaw %.1f",
			before, st.Mode, in.Pose.X, in.Pose.Y, in.Pose.Yaw)
	}
	st.Last = cmd
	return cmd
}

// forward follows the navigable terrain with a fixed left bias, which keeps
// the rover hugging the wall on its left.
func (c *Controller) forward(st *NavigationState, in DecisionInput) ActuationCommand {
	if len(in.NavPolar) < c.cfg.StopForward {
		st.Mode = ModeStop
		return ActuationCommand{Brake: c.cfg.BrakeSet}
	}

	cmd := ActuationCommand{
		Steer: c.steerToward(MeanAngleDeg(in.NavPolar) + c.cfg.ForwardBias),
	}
	if in.Velocity < c.cfg.MaxVel {
		cmd.Throttle = c.cfg.ThrottleSet
	}
	return cmd
}

func (c *Controller) stop(st *NavigationState, in DecisionInput) ActuationCommand {
	if in.Velocity > c.cfg.StopVel {
		return ActuationCommand{Brake: c.cfg.BrakeSet}
	}
	if len(in.NavPolar) < st.GoForward {
		// Turn in place until enough ground is visible.
		return ActuationCommand{Steer: -c.cfg.MaxSteer}
	}
	st.Mode = ModeForward
	return ActuationCommand{
		Throttle: c.cfg.ThrottleSet,
		Steer:    c.steerToward(MeanAngleDeg(in.NavPolar)),
	}
}

func (c *Controller) pickup(st *NavigationState, in DecisionInput, prev ActuationCommand) ActuationCommand {
	if in.PickupConfirmed {
		st.Mode = ModeForward
		return prev
	}

	if in.PickingUp {
		return ActuationCommand{Brake: c.cfg.BrakeSet}
	}

	stationary := math.Abs(in.Velocity) < c.cfg.StationaryVel
	requestPickup := stationary && in.NearTarget

	var cmd ActuationCommand
	switch {
	case len(in.TargetPolar) >= c.cfg.MinTargetAngles:
		cmd = c.approachVisible(in)
	case in.Pursuit != nil:
		target, ok := in.Pursuit.Pursued()
		if !ok {
			cmd = c.abandonPickup(st)
			break
		}
		cmd = c.approachKnown(st, in, target)
	default:
		cmd = c.abandonPickup(st)
	}

	cmd.Pickup = requestPickup
	return cmd
}

// approachVisible steers toward the visible target, crawling and braking
// harder the closer it is.
func (c *Controller) approachVisible(in DecisionInput) ActuationCommand {
	if in.NearTarget {
		return ActuationCommand{Brake: c.cfg.BrakeSet}
	}

	cmd := ActuationCommand{
		Steer: c.steerToward(MeanAngleDeg(in.TargetPolar) + c.cfg.TargetOffset),
	}
	brake := c.cfg.FarBrake
	if MeanDist(in.TargetPolar) < c.cfg.TargetCloseRange {
		brake = c.cfg.NearBrake
	}
	c.crawl(&cmd, in.Velocity, brake)
	return cmd
}

// approachKnown turns toward a pursued sample that is out of view and
// drives at it once aligned. Arriving next to the last known position with
// nothing in view means the rover overshot, and the pursuit is dropped.
func (c *Controller) approachKnown(st *NavigationState, in DecisionInput, target Point) ActuationCommand {
	if in.NearTarget {
		return ActuationCommand{Brake: c.cfg.BrakeSet}
	}

	local := WorldToRover(target, in.Pose)
	dist := math.Hypot(local.X, local.Y)
	diff := math.Atan2(local.Y, local.X) * 180 / math.Pi

	switch {
	case dist <= c.cfg.PursuitAdjacent:
		log.Printf("[NAV] Lost sample near (%.1f, %.1f), resuming forward", target.X, target.Y)
		st.Mode = ModeForward
		return ActuationCommand{}
	case math.Abs(diff) <= c.cfg.AlignTolerance:
		var cmd ActuationCommand
		brake := c.cfg.FarBrake
		if dist < c.cfg.PursuitNearRange {
			brake = c.cfg.NearBrake
		}
		c.crawl(&cmd, in.Velocity, brake)
		return cmd
	default:
		return c.turnInPlace(in.Velocity, diff)
	}
}

func (c *Controller) abandonPickup(st *NavigationState) ActuationCommand {
	st.Mode = ModeForward
	return ActuationCommand{Brake: c.cfg.BrakeSet}
}

func (c *Controller) unstuck(st *NavigationState, in DecisionInput) ActuationCommand {
	if math.Abs(SignedAngleDiff(st.StuckYaw, in.Pose.Yaw)) > c.cfg.UnstuckYawDelta {
		st.Mode = ModeStop
	}
	return ActuationCommand{Steer: -c.cfg.MaxSteer}
}

func (c *Controller) home(st *NavigationState, in DecisionInput) ActuationCommand {
	if st.Start == nil {
		return ActuationCommand{Brake: c.cfg.BrakeSet}
	}
	pos := in.Pose.Position()
	diff := SignedAngleDiff(in.Pose.Yaw, BearingDeg(pos, *st.Start))

	if math.Abs(diff) <= c.cfg.AlignTolerance {
		if st.DistanceToStart < c.cfg.HomeArriveDistance {
			st.Mode = ModeHomeDance
			return ActuationCommand{Brake: c.cfg.BrakeSet}
		}
		return ActuationCommand{Throttle: c.cfg.ThrottleHome}
	}
	return c.turnInPlace(in.Velocity, diff)
}

// homeDance swings the wheels between both steer limits forever.
func (c *Controller) homeDance(st *NavigationState, in DecisionInput) ActuationCommand {
	if math.Abs(in.Velocity) > c.cfg.StationaryVel {
		return ActuationCommand{Brake: c.cfg.BrakeSet}
	}

	n := &st.Counters.HomeDance
	if st.DanceIncrement && *n <= c.cfg.DanceFrames {
		*n++
		if *n > c.cfg.DanceFrames {
			st.DanceIncrement = false
		}
		return ActuationCommand{Steer: -c.cfg.MaxSteer}
	}

	*n--
	if *n < 0 {
		st.DanceIncrement = true
	}
	return ActuationCommand{Steer: c.cfg.MaxSteer}
}

// turnInPlace brakes while moving, then turns toward the side of the signed
// heading difference at a fixed small steer.
func (c *Controller) turnInPlace(velocity, diff float64) ActuationCommand {
	if math.Abs(velocity) > c.cfg.StationaryVel {
		return ActuationCommand{Brake: c.cfg.BrakeSet}
	}
	if diff < 0 {
		return ActuationCommand{Steer: -c.cfg.TurnSteer}
	}
	return ActuationCommand{Steer: c.cfg.TurnSteer}
}

// crawl sets a slow approach: throttle under the approach speed, brake above it.
func (c *Controller) crawl(cmd *ActuationCommand, velocity, brake float64) {
	if velocity < c.cfg.ApproachVel {
		cmd.Throttle = c.cfg.ThrottleCrawl
		cmd.Brake = 0
		return
	}
	cmd.Throttle = 0
	cmd.Brake = brake
}

func (c *Controller) steerToward(deg float64) float64 {
	return clamp(deg, -c.cfg.MaxSteer, c.cfg.MaxSteer)
}
