// Package pnp estimates the pose of a calibrated camera from 2D image to 3D world point
// correspondences that may contain outliers.
//
// A minimal three point solver (Grunert's law of cosines formulation) proposes up to four poses
// per random sample. A seeded RANSAC loop scores each proposal by the angle between the observed
// ray and the ray to the reprojected world point, keeps the proposal with the most inliers, and
// the result is returned as a 4x4 camera-to-world transform together with the inlier set.
package pnp
