package featureflag

type Flag string

const (
	FlagDisableFacingTest       Flag = "DISABLE_FACING_TEST"
	FlagDisableFrustumTest      Flag = "DISABLE_FRUSTUM_TEST"
	FlagDisableOcclusionTest    Flag = "DISABLE_OCCLUSION_TEST"
	FlagDisableVisibilityStream Flag = "DISABLE_VISIBILITY_STREAM"
)
