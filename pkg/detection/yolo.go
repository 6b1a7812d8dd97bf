package detection

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// YOLODetector runs a YOLOv8 ONNX model through OpenCV DNN and keeps only
// the classes presence cares about.
type YOLODetector struct {
	net       gocv.Net
	cfg       Config
	mu        sync.Mutex
	inputSize image.Point
}

// NewYOLO loads the model at cfg.ModelPath.
func NewYOLO(cfg Config) (*YOLODetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("detection: model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("detection: failed to load YOLO model from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &YOLODetector{
		net:       net,
		cfg:       cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

// Detect returns person and phone boxes in the frame.
func (d *YOLODetector) Detect(jpeg []byte) ([]Detection, error) {
	if len(jpeg) == 0 {
		return nil, ErrInvalidImage
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, ErrInvalidImage
	}

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	return d.parse(output, float32(img.Cols()), float32(img.Rows()))
}

// parse decodes a [1, 84, N] YOLOv8 tensor: 4 box values (cx, cy, w, h)
// followed by 80 class scores per candidate.
func (d *YOLODetector) parse(output gocv.Mat, imgW, imgH float32) ([]Detection, error) {
	sizes := output.Size()
	if len(sizes) != 3 || sizes[1] < 4+ClassPhone+1 {
		return nil, fmt.Errorf("detection: unexpected output shape %v", sizes)
	}
	attrs, n := sizes[1], sizes[2]

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("detection: read output: %w", err)
	}

	sx := imgW / float32(d.cfg.InputWidth)
	sy := imgH / float32(d.cfg.InputHeight)

	var (
		boxes       []image.Rectangle
		confidences []float32
		classIDs    []int
	)
	for i := 0; i < n; i++ {
		best, bestClass := float32(0), -1
		for c := 4; c < attrs; c++ {
			if score := data[c*n+i]; score > best {
				best, bestClass = score, c-4
			}
		}
		if best < d.cfg.BaseConfidence || (bestClass != ClassPerson && bestClass != ClassPhone) {
			continue
		}

		cx, cy := data[i], data[n+i]
		w, h := data[2*n+i], data[3*n+i]
		boxes = append(boxes, image.Rect(
			int((cx-w/2)*sx), int((cy-h/2)*sy),
			int((cx+w/2)*sx), int((cy+h/2)*sy),
		))
		confidences = append(confidences, best)
		classIDs = append(classIDs, bestClass)
	}
	if len(boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, d.cfg.BaseConfidence, d.cfg.NMSThresh)
	dets := make([]Detection, 0, len(indices))
	for _, idx := range indices {
		dets = append(dets, Detection{
			Box:        boxes[idx],
			ClassID:    classIDs[idx],
			ClassName:  COCOClasses[classIDs[idx]],
			Confidence: float64(confidences[idx]),
		})
	}
	return dets, nil
}

// Close releases the network.
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// COCOClasses contains the 80 COCO class names.
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

var _ Detector = (*YOLODetector)(nil)
