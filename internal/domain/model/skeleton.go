package model

// SkeletonJoint names a tracked joint and its rest position relative to the
// body root (meters, y up, z forward).
type SkeletonJoint struct {
	Name   string
	Parent string
	Rest   Vec3
}

// DefaultBody3D is the body skeleton delivered by the pose source, minus the
// finger and facial joints, ordered parents first.
var DefaultBody3D = []SkeletonJoint{
	{Name: "root", Rest: Vec3{}},
	{Name: "hips_joint", Parent: "root", Rest: Vec3{Y: 0}},
	{Name: "left_upLeg_joint", Parent: "hips_joint", Rest: Vec3{X: 0.09, Y: -0.06}},
	{Name: "left_leg_joint", Parent: "left_upLeg_joint", Rest: Vec3{X: 0.09, Y: -0.48}},
	{Name: "left_foot_joint", Parent: "left_leg_joint", Rest: Vec3{X: 0.09, Y: -0.90}},
	{Name: "left_toes_joint", Parent: "left_foot_joint", Rest: Vec3{X: 0.09, Y: -0.96, Z: 0.12}},
	{Name: "right_upLeg_joint", Parent: "hips_joint", Rest: Vec3{X: -0.09, Y: -0.06}},
	{Name: "right_leg_joint", Parent: "right_upLeg_joint", Rest: Vec3{X: -0.09, Y: -0.48}},
	{Name: "right_foot_joint", Parent: "right_leg_joint", Rest: Vec3{X: -0.09, Y: -0.90}},
	{Name: "right_toes_joint", Parent: "right_foot_joint", Rest: Vec3{X: -0.09, Y: -0.96, Z: 0.12}},
	{Name: "spine_1_joint", Parent: "hips_joint", Rest: Vec3{Y: 0.10}},
	{Name: "spine_3_joint", Parent: "spine_1_joint", Rest: Vec3{Y: 0.22}},
	{Name: "spine_5_joint", Parent: "spine_3_joint", Rest: Vec3{Y: 0.34}},
	{Name: "spine_7_joint", Parent: "spine_5_joint", Rest: Vec3{Y: 0.46}},
	{Name: "neck_1_joint", Parent: "spine_7_joint", Rest: Vec3{Y: 0.52}},
	{Name: "head_joint", Parent: "neck_1_joint", Rest: Vec3{Y: 0.66}},
	{Name: "left_shoulder_1_joint", Parent: "spine_7_joint", Rest: Vec3{X: 0.18, Y: 0.46}},
	{Name: "left_arm_joint", Parent: "left_shoulder_1_joint", Rest: Vec3{X: 0.20, Y: 0.42}},
	{Name: "left_forearm_joint", Parent: "left_arm_joint", Rest: Vec3{X: 0.22, Y: 0.14}},
	{Name: "left_hand_joint", Parent: "left_forearm_joint", Rest: Vec3{X: 0.24, Y: -0.10}},
	{Name: "right_shoulder_1_joint", Parent: "spine_7_joint", Rest: Vec3{X: -0.18, Y: 0.46}},
	{Name: "right_arm_joint", Parent: "right_shoulder_1_joint", Rest: Vec3{X: -0.20, Y: 0.42}},
	{Name: "right_forearm_joint", Parent: "right_arm_joint", Rest: Vec3{X: -0.22, Y: 0.14}},
	{Name: "right_hand_joint", Parent: "right_forearm_joint", Rest: Vec3{X: -0.24, Y: -0.10}},
}

// DefaultBody3DNames returns the joint names of DefaultBody3D in order.
func DefaultBody3DNames() []string {
	names := make([]string, len(DefaultBody3D))
	for i, j := range DefaultBody3D {
		names[i] = j.Name
	}
	return names
}
