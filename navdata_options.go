package ardrone

import "math"

// NavdataTag identifies a navdata option record. Values match
// original_source/Source/ARNavdataOptions.h exactly.
type NavdataTag uint16

const (
	TagDemo           NavdataTag = 0
	TagTime           NavdataTag = 1
	TagRawMeasures    NavdataTag = 2
	TagPhysMeasures   NavdataTag = 3
	TagGyrosOffsets   NavdataTag = 4
	TagEulerAngles    NavdataTag = 5
	TagReferences     NavdataTag = 6
	TagTrims          NavdataTag = 7
	TagRCReferences   NavdataTag = 8
	TagPWM            NavdataTag = 9
	TagAltitude       NavdataTag = 10
	TagVisionRaw      NavdataTag = 11
	TagVisionOF       NavdataTag = 12
	TagVision         NavdataTag = 13
	TagVisionPerf     NavdataTag = 14
	TagTrackersSend   NavdataTag = 15
	TagVisionDetect   NavdataTag = 16
	TagWatchdog       NavdataTag = 17
	TagADCDataFrame   NavdataTag = 18
	TagVideoStream    NavdataTag = 19
	TagGame           NavdataTag = 20
	TagPressureRaw    NavdataTag = 21
	TagMagneto        NavdataTag = 22
	TagWind           NavdataTag = 23
	TagKalmanPressure NavdataTag = 24
	TagHDVideoStream  NavdataTag = 25
	TagWifi           NavdataTag = 26
	TagGPS            NavdataTag = 27
	TagChecksum       NavdataTag = 0xFFFF
)

// NavdataOption is any decoded option record; concrete types below
// implement it. Tags the original doesn't copy into a typed struct
// (VisionOF, TrackersSend, VisionDetect, Watchdog, VideoStream, Game,
// HDVideoStream) decode to OptionRaw, exactly mirroring the original's
// commented-out ARNavdataCopyOption entries for those tags.
type NavdataOption interface {
	Tag() NavdataTag
}

// cursor reads a packed little-endian buffer field by field.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) u8() uint8 {
	v := c.buf[c.off]
	c.off++
	return v
}

func (c *cursor) u16() uint16 {
	v := uint16(c.buf[c.off]) | uint16(c.buf[c.off+1])<<8
	c.off += 2
	return v
}

func (c *cursor) i16() int16 { return int16(c.u16()) }

func (c *cursor) u32() uint32 {
	v := uint32(c.buf[c.off]) | uint32(c.buf[c.off+1])<<8 |
		uint32(c.buf[c.off+2])<<16 | uint32(c.buf[c.off+3])<<24
	c.off += 4
	return v
}

func (c *cursor) i32() int32 { return int32(c.u32()) }

func (c *cursor) u64() uint64 {
	lo := uint64(c.u32())
	hi := uint64(c.u32())
	return lo | hi<<32
}

func (c *cursor) f32() float32 { return math.Float32frombits(c.u32()) }

func (c *cursor) f64() float64 { return math.Float64frombits(c.u64()) }

func (c *cursor) skip(n int) { c.off += n }

func (c *cursor) bytes(n int) []byte {
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b
}

func (c *cursor) remaining() int { return len(c.buf) - c.off }

// vec3 reads a Vector3 as three consecutive float32 fields.
func (c *cursor) vec3() Vector3 { return Vector3{X: c.f32(), Y: c.f32(), Z: c.f32()} }

// OptionDemo is the always-present summary telemetry option (tag 0).
type OptionDemo struct {
	CtrlState            uint32
	VbatFlyingPercentage uint32
	Theta, Phi, Psi      float32
	Altitude             int32
	Vx, Vy               float32
}

func (OptionDemo) Tag() NavdataTag { return TagDemo }

func decodeDemo(c *cursor) OptionDemo {
	return OptionDemo{
		CtrlState:            c.u32(),
		VbatFlyingPercentage: c.u32(),
		Theta:                c.f32(),
		Phi:                  c.f32(),
		Psi:                  c.f32(),
		Altitude:             c.i32(),
		Vx:                   c.f32(),
		Vy:                   c.f32(),
	}
}

// OptionTime is tag 1: a single tick counter.
type OptionTime struct{ Time uint32 }

func (OptionTime) Tag() NavdataTag    { return TagTime }
func decodeTime(c *cursor) OptionTime { return OptionTime{Time: c.u32()} }

// OptionRawMeasures is tag 2.
type OptionRawMeasures struct {
	Accelerometers    [3]uint16
	Gyroscopes        [3]int16
	Gyroscopes110     [2]int16
	Vbat              uint32
	USStartEcho       uint16
	USEndEcho         uint16
	USAssociationEcho uint16
	USDistanceEcho    uint16
	USCurveTime       uint16
	USCurveValue      uint16
	USCurveRef        uint16
	FlagEchoIni       uint16
	NbEcho            uint16
	SumEcho           uint32
	AltTempRaw        int32
	Gradient          int16
}

func (OptionRawMeasures) Tag() NavdataTag { return TagRawMeasures }

func decodeRawMeasures(c *cursor) OptionRawMeasures {
	var o OptionRawMeasures
	for i := range o.Accelerometers {
		o.Accelerometers[i] = c.u16()
	}
	for i := range o.Gyroscopes {
		o.Gyroscopes[i] = c.i16()
	}
	for i := range o.Gyroscopes110 {
		o.Gyroscopes110[i] = c.i16()
	}
	o.Vbat = c.u32()
	o.USStartEcho = c.u16()
	o.USEndEcho = c.u16()
	o.USAssociationEcho = c.u16()
	o.USDistanceEcho = c.u16()
	o.USCurveTime = c.u16()
	o.USCurveValue = c.u16()
	o.USCurveRef = c.u16()
	o.FlagEchoIni = c.u16()
	o.NbEcho = c.u16()
	o.SumEcho = c.u32()
	o.AltTempRaw = c.i32()
	o.Gradient = c.i16()
	return o
}

// OptionPhysMeasures is tag 3.
type OptionPhysMeasures struct {
	AccsTemp  float32
	GyroTemp  uint16
	Phys      [3]float32
	PhysGyros [3]float32
	Alim3V3   uint32
	VrefEpson uint32
	VrefIDG   uint32
}

func (OptionPhysMeasures) Tag() NavdataTag { return TagPhysMeasures }

func decodePhysMeasures(c *cursor) OptionPhysMeasures {
	var o OptionPhysMeasures
	o.AccsTemp = c.f32()
	o.GyroTemp = c.u16()
	for i := range o.Phys {
		o.Phys[i] = c.f32()
	}
	for i := range o.PhysGyros {
		o.PhysGyros[i] = c.f32()
	}
	o.Alim3V3 = c.u32()
	o.VrefEpson = c.u32()
	o.VrefIDG = c.u32()
	return o
}

// OptionGyrosOffsets is tag 4.
type OptionGyrosOffsets struct{ Offsets [3]float32 }

func (OptionGyrosOffsets) Tag() NavdataTag { return TagGyrosOffsets }

func decodeGyrosOffsets(c *cursor) OptionGyrosOffsets {
	var o OptionGyrosOffsets
	for i := range o.Offsets {
		o.Offsets[i] = c.f32()
	}
	return o
}

// OptionEulerAngles is tag 5, supplemental beyond spec.md's catalog.
type OptionEulerAngles struct{ Theta, Phi float32 }

func (OptionEulerAngles) Tag() NavdataTag { return TagEulerAngles }

func decodeEulerAngles(c *cursor) OptionEulerAngles {
	return OptionEulerAngles{Theta: c.f32(), Phi: c.f32()}
}

// OptionReferences is tag 6, supplemental beyond spec.md's catalog.
type OptionReferences struct {
	RefTheta, RefPhi, RefThetaI, RefPhiI int32
	RefPitch, RefRoll, RefYaw, RefPsi    int32
	VxRef, VyRef, ThetaMod, PhiMod       float32
	KVx, KVy                             float32
	KMode                                uint32
	UITime, UITheta, UIPhi, UIPsi        float32
	UIPsiAccuracy                        float32
	UISeq                                int32
}

func (OptionReferences) Tag() NavdataTag { return TagReferences }

func decodeReferences(c *cursor) OptionReferences {
	var o OptionReferences
	o.RefTheta = c.i32()
	o.RefPhi = c.i32()
	o.RefThetaI = c.i32()
	o.RefPhiI = c.i32()
	o.RefPitch = c.i32()
	o.RefRoll = c.i32()
	o.RefYaw = c.i32()
	o.RefPsi = c.i32()
	o.VxRef = c.f32()
	o.VyRef = c.f32()
	o.ThetaMod = c.f32()
	o.PhiMod = c.f32()
	o.KVx = c.f32()
	o.KVy = c.f32()
	o.KMode = c.u32()
	o.UITime = c.f32()
	o.UITheta = c.f32()
	o.UIPhi = c.f32()
	o.UIPsi = c.f32()
	o.UIPsiAccuracy = c.f32()
	o.UISeq = c.i32()
	return o
}

// OptionTrims is tag 7.
type OptionTrims struct {
	AngularRatesR float32
	Theta, Phi    float32
}

func (OptionTrims) Tag() NavdataTag { return TagTrims }

func decodeTrims(c *cursor) OptionTrims {
	var o OptionTrims
	o.AngularRatesR = c.f32()
	o.Theta = c.f32()
	o.Phi = c.f32()
	return o
}

// OptionRCReferences is tag 8.
type OptionRCReferences struct{ Pitch, Roll, Yaw, Gaz, AG int32 }

func (OptionRCReferences) Tag() NavdataTag { return TagRCReferences }

func decodeRCReferences(c *cursor) OptionRCReferences {
	return OptionRCReferences{
		Pitch: c.i32(), Roll: c.i32(), Yaw: c.i32(), Gaz: c.i32(), AG: c.i32(),
	}
}

// OptionPWM is tag 9.
type OptionPWM struct {
	Motors           [4]uint8
	SatMotors        [4]uint8
	GazFeedForward   float32
	GazAltitude      float32
	AltitudeIntegral float32
	VzRef            float32
	UPitch           int32
	URoll            int32
	UYaw             int32
	YawUI            float32
	UPitchPlanif     int32
	URollPlanif      int32
	UYawPlanif       int32
	UGazPlanif       float32
	CurrentMotors    [4]uint16
	AltitudeProp     float32
	AltitudeDer      float32
}

func (OptionPWM) Tag() NavdataTag { return TagPWM }

func decodePWM(c *cursor) OptionPWM {
	var o OptionPWM
	for i := range o.Motors {
		o.Motors[i] = c.u8()
	}
	for i := range o.SatMotors {
		o.SatMotors[i] = c.u8()
	}
	o.GazFeedForward = c.f32()
	o.GazAltitude = c.f32()
	o.AltitudeIntegral = c.f32()
	o.VzRef = c.f32()
	o.UPitch = c.i32()
	o.URoll = c.i32()
	o.UYaw = c.i32()
	o.YawUI = c.f32()
	o.UPitchPlanif = c.i32()
	o.URollPlanif = c.i32()
	o.UYawPlanif = c.i32()
	o.UGazPlanif = c.f32()
	for i := range o.CurrentMotors {
		o.CurrentMotors[i] = c.u16()
	}
	o.AltitudeProp = c.f32()
	o.AltitudeDer = c.f32()
	return o
}

// OptionAltitude is tag 10.
type OptionAltitude struct {
	Altitude    int32
	Vz          float32
	RefAltitude int32
	RawAltitude int32
	ObsAccZ     float32
	ObsAlt      float32
	ObsX        Vector3
	ObsState    uint32
	EstVb       [2]float32
	EstState    uint32
}

func (OptionAltitude) Tag() NavdataTag { return TagAltitude }

func decodeAltitude(c *cursor) OptionAltitude {
	var o OptionAltitude
	o.Altitude = c.i32()
	o.Vz = c.f32()
	o.RefAltitude = c.i32()
	o.RawAltitude = c.i32()
	o.ObsAccZ = c.f32()
	o.ObsAlt = c.f32()
	o.ObsX = c.vec3()
	o.ObsState = c.u32()
	o.EstVb[0] = c.f32()
	o.EstVb[1] = c.f32()
	o.EstState = c.u32()
	return o
}

// OptionVisionRaw is tag 11.
type OptionVisionRaw struct{ TxRaw, TyRaw, TzRaw float32 }

func (OptionVisionRaw) Tag() NavdataTag { return TagVisionRaw }

func decodeVisionRaw(c *cursor) OptionVisionRaw {
	return OptionVisionRaw{TxRaw: c.f32(), TyRaw: c.f32(), TzRaw: c.f32()}
}

// OptionVision is tag 13.
type OptionVision struct {
	State                          uint32
	Misc                           int32
	PhiTrim, PhiRefProp            float32
	ThetaTrim, ThetaRefProp        float32
	NewRawPicture                  int32
	ThetaCapture, PhiCapture       float32
	PsiCapture                     float32
	AltitudeCapture                int32
	TimeCapture                    uint32
	BodyV                          Vector3
	DeltaPhi, DeltaTheta, DeltaPsi float32
	GoldDefined, GoldReset         uint32
	GoldX, GoldY                   float32
}

func (OptionVision) Tag() NavdataTag { return TagVision }

func decodeVision(c *cursor) OptionVision {
	var o OptionVision
	o.State = c.u32()
	o.Misc = c.i32()
	o.PhiTrim = c.f32()
	o.PhiRefProp = c.f32()
	o.ThetaTrim = c.f32()
	o.ThetaRefProp = c.f32()
	o.NewRawPicture = c.i32()
	o.ThetaCapture = c.f32()
	o.PhiCapture = c.f32()
	o.PsiCapture = c.f32()
	o.AltitudeCapture = c.i32()
	o.TimeCapture = c.u32()
	o.BodyV = c.vec3()
	o.DeltaPhi = c.f32()
	o.DeltaTheta = c.f32()
	o.DeltaPsi = c.f32()
	o.GoldDefined = c.u32()
	o.GoldReset = c.u32()
	o.GoldX = c.f32()
	o.GoldY = c.f32()
	return o
}

// OptionVisionPerf is tag 14; a block of stage timings.
type OptionVisionPerf struct {
	TimeSzo, TimeCorners, TimeCompute float32
	TimeTracking, TimeTrans           float32
	TimeUpdate                        float32
	TimeCustom                        [20]float32
}

func (OptionVisionPerf) Tag() NavdataTag { return TagVisionPerf }

func decodeVisionPerf(c *cursor) OptionVisionPerf {
	var o OptionVisionPerf
	o.TimeSzo = c.f32()
	o.TimeCorners = c.f32()
	o.TimeCompute = c.f32()
	o.TimeTracking = c.f32()
	o.TimeTrans = c.f32()
	o.TimeUpdate = c.f32()
	for i := range o.TimeCustom {
		o.TimeCustom[i] = c.f32()
	}
	return o
}

// OptionADCDataFrame is tag 18.
type OptionADCDataFrame struct {
	Version uint32
	Data    [20]uint8
}

func (OptionADCDataFrame) Tag() NavdataTag { return TagADCDataFrame }

func decodeADCDataFrame(c *cursor) OptionADCDataFrame {
	var o OptionADCDataFrame
	o.Version = c.u32()
	for i := range o.Data {
		o.Data[i] = c.u8()
	}
	return o
}

// OptionPressureRaw is tag 21.
type OptionPressureRaw struct {
	UP          int32
	UT          int16
	Temperature int32
	Pressure    int32
}

func (OptionPressureRaw) Tag() NavdataTag { return TagPressureRaw }

func decodePressureRaw(c *cursor) OptionPressureRaw {
	return OptionPressureRaw{
		UP: c.i32(), UT: c.i16(), Temperature: c.i32(), Pressure: c.i32(),
	}
}

// OptionMagneto is tag 22.
type OptionMagneto struct {
	Mx, My, Mz                              int16
	Raw, Rectified, Offset                  Vector3
	HeadingUnwrapped, HeadingGyroUnwrapped   float32
	HeadingFusionUnwrapped                   float32
	MagnetoCalibrationOK                     uint8
	MagnetoState                             uint32
	MagnetoRadius                            float32
	ErrorMean, ErrorVar                      float32
}

func (OptionMagneto) Tag() NavdataTag { return TagMagneto }

func decodeMagneto(c *cursor) OptionMagneto {
	var o OptionMagneto
	o.Mx = c.i16()
	o.My = c.i16()
	o.Mz = c.i16()
	o.Raw = c.vec3()
	o.Rectified = c.vec3()
	o.Offset = c.vec3()
	o.HeadingUnwrapped = c.f32()
	o.HeadingGyroUnwrapped = c.f32()
	o.HeadingFusionUnwrapped = c.f32()
	o.MagnetoCalibrationOK = c.u8()
	o.MagnetoState = c.u32()
	o.MagnetoRadius = c.f32()
	o.ErrorMean = c.f32()
	o.ErrorVar = c.f32()
	return o
}

// OptionWind is tag 23.
type OptionWind struct {
	Speed, Angle                    float32
	CompensationTheta, CompensationPhi float32
	StateX1, StateX2, StateX3          float32
	StateX4, StateX5, StateX6          float32
	MagnetoDebug1, MagnetoDebug2       float32
	MagnetoDebug3                      float32
}

func (OptionWind) Tag() NavdataTag { return TagWind }

func decodeWind(c *cursor) OptionWind {
	var o OptionWind
	o.Speed = c.f32()
	o.Angle = c.f32()
	o.CompensationTheta = c.f32()
	o.CompensationPhi = c.f32()
	o.StateX1 = c.f32()
	o.StateX2 = c.f32()
	o.StateX3 = c.f32()
	o.StateX4 = c.f32()
	o.StateX5 = c.f32()
	o.StateX6 = c.f32()
	o.MagnetoDebug1 = c.f32()
	o.MagnetoDebug2 = c.f32()
	o.MagnetoDebug3 = c.f32()
	return o
}

// OptionKalmanPressure is tag 24.
type OptionKalmanPressure struct {
	OffsetPressure                   float32
	EstZ, EstZDot                    float32
	EstBiasPWM, EstBiaisPression     float32
	OffsetUS, PredictionUS           float32
	CovAlt, CovPWM, CovVitesse       float32
	BoolEffetSol                     int32
	SommeInno                        float32
	FlagRejetUS                      int32
	UMultisinus, GazAltitude         float32
	FlagMultisinus, FlagMultisinusDebut int32
}

func (OptionKalmanPressure) Tag() NavdataTag { return TagKalmanPressure }

func decodeKalmanPressure(c *cursor) OptionKalmanPressure {
	var o OptionKalmanPressure
	o.OffsetPressure = c.f32()
	o.EstZ = c.f32()
	o.EstZDot = c.f32()
	o.EstBiasPWM = c.f32()
	o.EstBiaisPression = c.f32()
	o.OffsetUS = c.f32()
	o.PredictionUS = c.f32()
	o.CovAlt = c.f32()
	o.CovPWM = c.f32()
	o.CovVitesse = c.f32()
	o.BoolEffetSol = c.i32()
	o.SommeInno = c.f32()
	o.FlagRejetUS = c.i32()
	o.UMultisinus = c.f32()
	o.GazAltitude = c.f32()
	o.FlagMultisinus = c.i32()
	o.FlagMultisinusDebut = c.i32()
	return o
}

// OptionWifi is tag 26.
type OptionWifi struct{ LinkQuality uint32 }

func (OptionWifi) Tag() NavdataTag    { return TagWifi }
func decodeWifi(c *cursor) OptionWifi { return OptionWifi{LinkQuality: c.u32()} }

// GPSChannel is one of the 12 satellite carrier-to-noise slots in the
// GPS option.
type GPSChannel struct {
	Sat uint8
	CN0 uint8
}

// OptionGPS is tag 27, the richest telemetry record.
type OptionGPS struct {
	Location                    Location
	Elevation, HDOP              float64
	DataAvailable                uint32
	ZeroValidated, WptValidated  int32
	Lat0, Long0                  float64
	LatFused, LongFused          float64
	GPSState                    uint32
	XTraj, XRef, YTraj, YRef     float32
	ThetaP, PhiP, ThetaI, PhiI   float32
	ThetaD, PhiD                 float32
	VDOP, PDOP                   float64
	Speed                        float32
	LastFrameTimestamp           uint32
	Degree, DegreeMagnetic       float32
	EHPE, EHVE, CN0              float32
	NumSat                       uint32
	Channels                     [12]GPSChannel
	IsGPSPlugged                 int32
	EphemerisStatus              uint32
	VxTraj, VyTraj               float32
	FirmwareStatus               uint32
}

func (OptionGPS) Tag() NavdataTag { return TagGPS }

func decodeGPS(c *cursor) OptionGPS {
	var o OptionGPS
	o.Location = Location{Latitude: c.f64(), Longitude: c.f64()}
	o.Elevation = c.f64()
	o.HDOP = c.f64()
	o.DataAvailable = c.u32()
	o.ZeroValidated = c.i32()
	o.WptValidated = c.i32()
	o.Lat0 = c.f64()
	o.Long0 = c.f64()
	o.LatFused = c.f64()
	o.LongFused = c.f64()
	o.GPSState = c.u32()
	o.XTraj = c.f32()
	o.XRef = c.f32()
	o.YTraj = c.f32()
	o.YRef = c.f32()
	o.ThetaP = c.f32()
	o.PhiP = c.f32()
	o.ThetaI = c.f32()
	o.PhiI = c.f32()
	o.ThetaD = c.f32()
	o.PhiD = c.f32()
	o.VDOP = c.f64()
	o.PDOP = c.f64()
	o.Speed = c.f32()
	o.LastFrameTimestamp = c.u32()
	o.Degree = c.f32()
	o.DegreeMagnetic = c.f32()
	o.EHPE = c.f32()
	o.EHVE = c.f32()
	o.CN0 = c.f32()
	o.NumSat = c.u32()
	for i := range o.Channels {
		o.Channels[i] = GPSChannel{Sat: c.u8(), CN0: c.u8()}
	}
	o.IsGPSPlugged = c.i32()
	o.EphemerisStatus = c.u32()
	o.VxTraj = c.f32()
	o.VyTraj = c.f32()
	o.FirmwareStatus = c.u32()
	return o
}

// OptionRaw is used for tags the original doesn't decode into a typed
// struct (kept for size-correct skip/inspection without guessing a
// layout the original itself never claimed).
type OptionRaw struct {
	RawTag  NavdataTag
	Payload []byte
}

func (o OptionRaw) Tag() NavdataTag { return o.RawTag }

// decodeOption decodes a single tag/size/payload record starting at
// the cursor's current offset. size is the record size as read from
// the wire, including the 4-byte tag+size sub-header.
func decodeOption(tag NavdataTag, size int, c *cursor) NavdataOption {
	start := c.off
	end := start + (size - 4)
	switch tag {
	case TagDemo:
		return decodeDemo(c)
	case TagTime:
		return decodeTime(c)
	case TagRawMeasures:
		return decodeRawMeasures(c)
	case TagPhysMeasures:
		return decodePhysMeasures(c)
	case TagGyrosOffsets:
		return decodeGyrosOffsets(c)
	case TagEulerAngles:
		return decodeEulerAngles(c)
	case TagReferences:
		return decodeReferences(c)
	case TagTrims:
		return decodeTrims(c)
	case TagRCReferences:
		return decodeRCReferences(c)
	case TagPWM:
		return decodePWM(c)
	case TagAltitude:
		return decodeAltitude(c)
	case TagVisionRaw:
		return decodeVisionRaw(c)
	case TagVision:
		return decodeVision(c)
	case TagVisionPerf:
		return decodeVisionPerf(c)
	case TagADCDataFrame:
		return decodeADCDataFrame(c)
	case TagPressureRaw:
		return decodePressureRaw(c)
	case TagMagneto:
		return decodeMagneto(c)
	case TagWind:
		return decodeWind(c)
	case TagKalmanPressure:
		return decodeKalmanPressure(c)
	case TagWifi:
		return decodeWifi(c)
	case TagGPS:
		return decodeGPS(c)
	default:
		raw := OptionRaw{RawTag: tag}
		if end <= len(c.buf) && end >= c.off {
			raw.Payload = c.bytes(end - c.off)
		}
		return raw
	}
}
