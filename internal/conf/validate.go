package conf

import (
	"github.com/tphakala/birdstream/internal/errors"
)

// ValidateSettings checks the loaded configuration for values the runtime
// cannot work with. Thresholds are probabilities and must stay in [0,1];
// queue sizes and timeouts must be positive.
func ValidateSettings(settings *Settings) error {
	if err := validateSoundIDSettings(&settings.SoundID); err != nil {
		return err
	}
	if err := validateStreamSettings(&settings.Stream); err != nil {
		return err
	}
	return nil
}

func validateSoundIDSettings(s *SoundIDSettings) error {
	if s.SentinelName == "" {
		return errors.Newf("soundid.sentinelname must not be empty").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	for name, v := range map[string]float64{
		"soundid.singingthreshold":  s.SingingThreshold,
		"soundid.initialthreshold":  s.InitialThreshold,
		"soundid.unlockedthreshold": s.UnlockedThreshold,
	} {
		if v < 0 || v > 1 {
			return errors.Newf("%s must be between 0 and 1, got %f", name, v).
				Component("conf").
				Category(errors.CategoryValidation).
				Context("setting", name).
				Build()
		}
	}
	if s.MinDetectionsToUnlock < 1 {
		return errors.Newf("soundid.mindetectionstounlock must be at least 1, got %d", s.MinDetectionsToUnlock).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

func validateStreamSettings(s *StreamSettings) error {
	if s.DetectionQueueSize < 1 || s.SpectrogramQueueSize < 1 {
		return errors.Newf("stream queue sizes must be positive").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if s.ShutdownTimeout <= 0 {
		return errors.Newf("stream.shutdowntimeout must be positive").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if s.ClientBufferSize < 1 {
		return errors.Newf("stream.clientbuffersize must be positive").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	// A zero heartbeat interval would make the keep-alive ticker panic on
	// every connection
	if s.HeartbeatInterval <= 0 {
		return errors.Newf("stream.heartbeatinterval must be positive").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	// A zero send timeout races healthy subscribers into eviction
	if s.SendTimeout <= 0 {
		return errors.Newf("stream.sendtimeout must be positive").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}
