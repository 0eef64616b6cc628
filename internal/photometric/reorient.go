package photometric

import "shading-normals/internal/mathutil"

// Reorient rotates the whole field so its mean normal lies on the camera
// axis. A zero mean, or one pointing straight away from the camera, has no
// unique rotation and the field is returned unchanged.
func Reorient(f Field) Field {
	mean, ok := f.MeanNormal()
	if !ok {
		return f.Clone()
	}
	m, ok := mathutil.RotationBetween(mean, mathutil.CameraAxis)
	if !ok {
		return f.Clone()
	}
	return f.rotate(m)
}
