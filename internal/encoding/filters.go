package encoding

import "fmt"

// letterboxFilter scales into res preserving aspect ratio and pads the rest
// with black bars.
func letterboxFilter(res Resolution) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black",
		res.Width, res.Height, res.Width, res.Height,
	)
}

// mergeScaleFilter is the CPU filter graph used when re-encoding merged
// clips into res.
func mergeScaleFilter(res Resolution) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		res.Width, res.Height, res.Width, res.Height,
	)
}

// cudaMergeScaleFilter resizes on the GPU, then downloads frames to pad them
// in system memory.
func cudaMergeScaleFilter(res Resolution) string {
	ar := res.AspectRatio()
	return fmt.Sprintf(
		"scale_cuda=w='if(gt(iw/ih,%.6f),%d,-2)':h='if(gt(iw/ih,%.6f),-2,%d)',hwdownload,format=nv12,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,format=yuv420p,setsar=1",
		ar, res.Width, ar, res.Height, res.Width, res.Height,
	)
}

func transposeFilter(value string) string {
	return "transpose=" + value
}

// aspectFilter stretches or squashes horizontally to expr (e.g. 16/9).
func aspectFilter(expr string) string {
	return fmt.Sprintf("scale=ih*(%s):ih,setdar=%s", expr, expr)
}
