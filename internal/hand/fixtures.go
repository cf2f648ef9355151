package hand

// ThumbsUpLandmarks returns a preset hand with the thumb extended upward and the
// other fingers curled (roughly the letter A).
func ThumbsUpLandmarks() Landmarks {
	var lm Landmarks

	lm.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	lm.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	lm.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.65, Z: 0.0}
	lm.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.50, Z: 0.0}
	lm.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	lm.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.70, Z: -0.02}
	lm.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.68, Z: -0.05}
	lm.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}
	lm.Points[IndexTip] = Point3D{X: 0.50, Y: 0.72, Z: -0.02}

	lm.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}
	lm.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.66, Z: -0.05}
	lm.Points[MiddleDIP] = Point3D{X: 0.47, Y: 0.68, Z: -0.04}
	lm.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}

	lm.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	lm.Points[RingPIP] = Point3D{X: 0.45, Y: 0.68, Z: -0.05}
	lm.Points[RingDIP] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}
	lm.Points[RingTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	lm.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	lm.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	lm.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72, Z: -0.04}
	lm.Points[PinkyTip] = Point3D{X: 0.35, Y: 0.74, Z: -0.02}

	return lm
}

// OpenPalmLandmarks returns a preset hand with all fingers extended (roughly the letter B
// with the thumb out).
func OpenPalmLandmarks() Landmarks {
	var lm Landmarks

	lm.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	lm.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	lm.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	lm.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	lm.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	lm.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	lm.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	lm.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	lm.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	lm.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	lm.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	lm.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	lm.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	lm.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	lm.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	lm.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	lm.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	lm.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	lm.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	lm.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	lm.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return lm
}
