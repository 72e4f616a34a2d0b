package robot

// Coordinate conventions.
//
// The rest of the module works in the operator frame: a positive speed
// drives the car forward and a positive steering angle turns it right.
// The hardware does not agree with that frame:
//
//   - the rear drive motors are mounted so that forward rotation is a
//     negative speed;
//   - the steering motor turns the wheels right for negative positions.
//
// These two functions are the only places where the frames are converted.

// ToDriveFrame maps an operator speed to the drive motor frame.
func ToDriveFrame(speed float64) float64 {
	return -speed
}

// ToSteeringFrame maps an operator steering angle to the steering motor frame.
func ToSteeringFrame(angle int) int {
	return -angle
}
