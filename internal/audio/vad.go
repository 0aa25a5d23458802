package audio

// FrameMs is the duration of one analysis frame
const FrameMs = 20

// VADConfig holds configuration for Voice Activity Detection
type VADConfig struct {
	EnergyThreshold float64 // RMS energy threshold for speech detection
	SilenceFrames   int     // Number of consecutive silence frames to mark as end of speech
	FrameSize       int     // Number of samples per frame (320 for 20ms at 16kHz)
}

// DefaultVADConfig returns a default VAD configuration
func DefaultVADConfig() *VADConfig {
	return &VADConfig{
		EnergyThreshold: 500.0,
		SilenceFrames:   40,  // 800ms of silence (40 frames * 20ms)
		FrameSize:       320, // 20ms at 16kHz
	}
}

// VADDetector performs Voice Activity Detection
type VADDetector struct {
	config         VADConfig
	silenceCounter int
	isSpeaking     bool
}

// NewVADDetector creates a new VAD detector. The config is copied so the
// threshold can be recalibrated per session without affecting the caller.
func NewVADDetector(config *VADConfig) *VADDetector {
	if config == nil {
		config = DefaultVADConfig()
	}
	return &VADDetector{config: *config}
}

// ProcessFrame processes an audio frame and returns whether speech is detected
// Returns: (isSpeaking, speechStarted, speechEnded)
func (v *VADDetector) ProcessFrame(samples []int16) (bool, bool, bool) {
	frameHasSpeech := CalculateRMS(samples) > v.config.EnergyThreshold

	var speechStarted, speechEnded bool

	if frameHasSpeech {
		v.silenceCounter = 0
		if !v.isSpeaking {
			speechStarted = true
			v.isSpeaking = true
		}
	} else {
		v.silenceCounter++
		if v.isSpeaking && v.silenceCounter >= v.config.SilenceFrames {
			speechEnded = true
			v.isSpeaking = false
			v.silenceCounter = 0
		}
	}

	return v.isSpeaking, speechStarted, speechEnded
}

// Calibrate raises the energy threshold above the measured ambient level.
// The configured threshold acts as a floor; it returns the threshold in use.
func (v *VADDetector) Calibrate(ambientRMS, factor float64) float64 {
	if candidate := ambientRMS * factor; candidate > v.config.EnergyThreshold {
		v.config.EnergyThreshold = candidate
	}
	return v.config.EnergyThreshold
}

// Threshold returns the current energy threshold
func (v *VADDetector) Threshold() float64 {
	return v.config.EnergyThreshold
}

// Reset resets the VAD detector state
func (v *VADDetector) Reset() {
	v.silenceCounter = 0
	v.isSpeaking = false
}

// IsSpeaking returns whether speech is currently detected
func (v *VADDetector) IsSpeaking() bool {
	return v.isSpeaking
}

// DetectSilence detects if audio samples represent silence
func DetectSilence(samples []int16, threshold float64) bool {
	return CalculateRMS(samples) < threshold
}
